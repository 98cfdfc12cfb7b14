package assets

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sitecraft/siteadmin/internal/client"
	"github.com/sitecraft/siteadmin/internal/docsync"
	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/syncerr"
	"github.com/sitecraft/siteadmin/pkg/logger"
)

// maxUploadAttempts bounds the list-name-upload rounds when another writer
// takes the generated name first.
const maxUploadAttempts = 2

var (
	logoTypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)
	extPattern      = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Store is the asset side of the store API.
type Store interface {
	ListDirectory(ctx context.Context, dir string) ([]string, error)
	AssetMetadata(ctx context.Context, path string) (string, error)
	UploadProductImage(ctx context.Context, up client.Upload) (client.UploadResult, error)
}

// Documents applies registry edits to the pages document.
type Documents interface {
	UpdateAndSave(ctx context.Context, kind site.Kind, edits ...jsontree.Edit) (docsync.SaveResult, error)
}

type Uploader struct {
	store Store
	docs  Documents
}

func NewUploader(store Store, docs Documents) *Uploader {
	return &Uploader{store: store, docs: docs}
}

type LogoUpload struct {
	Type        string
	Ext         string
	Content     []byte
	Description string
}

type LogoResult struct {
	Key      string
	Path     string
	FileURL  string
	SHA      string
	Attempts int
}

// UploadLogo stores a new numbered logo file and registers it under
// logos.<type>-<n> in the pages document.
func (u *Uploader) UploadLogo(ctx context.Context, up LogoUpload) (LogoResult, error) {
	if !logoTypePattern.MatchString(up.Type) {
		return LogoResult{}, &syncerr.ValidationError{Field: "type", Value: up.Type, Reason: "must be lower-case letters, digits or underscores"}
	}
	if !extPattern.MatchString(up.Ext) {
		return LogoResult{}, &syncerr.ValidationError{Field: "ext", Value: up.Ext, Reason: "must be a lower-case file extension"}
	}
	if len(up.Content) == 0 {
		return LogoResult{}, &syncerr.ValidationError{Field: "content", Reason: "is empty"}
	}

	var (
		res LogoResult
		err error
	)
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		res, err = u.uploadOnce(ctx, up)
		if err == nil {
			res.Attempts = attempt
			break
		}
		if !syncerr.IsConflict(err) || attempt == maxUploadAttempts {
			return LogoResult{}, err
		}
		logger.Infof("assets: %s was taken by another writer, picking a new name", res.Path)
	}

	entry := site.RegistryEntry{Type: up.Type, Path: res.Path, Description: up.Description}
	edit, err := site.RegistryEntryEdit(site.RegistryLogos, res.Key, entry)
	if err != nil {
		return LogoResult{}, err
	}
	if _, err := u.docs.UpdateAndSave(ctx, site.KindPages, edit); err != nil {
		return LogoResult{}, fmt.Errorf("register logo %s: %w", res.Key, err)
	}
	logger.Infof("assets: registered %s at %s", res.Key, res.Path)
	return res, nil
}

// uploadOnce returns the chosen path even when the upload fails. A generated
// name is always written create-only: finding it already taken is a conflict,
// never an overwrite.
func (u *Uploader) uploadOnce(ctx context.Context, up LogoUpload) (LogoResult, error) {
	files, err := u.store.ListDirectory(ctx, LogoDir)
	if err != nil && !syncerr.IsNotFound(err) {
		return LogoResult{}, fmt.Errorf("list %s: %w", LogoDir, err)
	}
	name := GenerateUniqueLogoFileName(files, up.Type, up.Ext)
	res := LogoResult{Key: RegistryKey(name), Path: LogoDir + "/" + name}

	switch sha, err := u.store.AssetMetadata(ctx, res.Path); {
	case err == nil:
		return res, &syncerr.ConflictError{Resource: res.Path, ExpectedVersion: sha, Message: "file already exists"}
	case !syncerr.IsNotFound(err):
		return res, fmt.Errorf("stat %s: %w", res.Path, err)
	}
	out, err := u.store.UploadProductImage(ctx, client.Upload{Path: res.Path, Content: up.Content})
	if err != nil {
		return res, fmt.Errorf("upload %s: %w", res.Path, err)
	}
	res.FileURL, res.SHA = out.FileURL, out.NewSHA
	return res, nil
}
