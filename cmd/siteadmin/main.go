package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/sitecraft/siteadmin/internal/assets"
	"github.com/sitecraft/siteadmin/internal/client"
	"github.com/sitecraft/siteadmin/internal/config"
	"github.com/sitecraft/siteadmin/internal/docsync"
	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/syncerr"
	"github.com/sitecraft/siteadmin/internal/tokens"
	"github.com/sitecraft/siteadmin/pkg/logger"
)

const SiteAdminVersion = "0.1.0"

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitConflict = 3
)

const commandTimeout = 2 * time.Minute

const usage = `Site configuration admin.

The api url and token default to SITEADMIN_API_URL and SITEADMIN_TOKEN.

Usage:
    siteadmin show <kind> [<path>] [--api_url=<api_url>]
    siteadmin set <kind> <path> <value> [--api_url=<api_url>] [--token=<token>]
    siteadmin unset <kind> <path> [--api_url=<api_url>] [--token=<token>]
    siteadmin brand-color <name> <color> [--api_url=<api_url>] [--token=<token>]
    siteadmin bar-height (navbar|footer) <height> [--api_url=<api_url>] [--token=<token>]
    siteadmin upload-logo <type> <file> [--description=<text>] [--api_url=<api_url>] [--token=<token>]
    siteadmin token --sub=<sub> [--secret=<secret>] [--ttl=<ttl>]
    siteadmin -h | --help
    siteadmin --version

Options:
    -h --help               Show this screen.
    --version               Show version.
    --api_url=<api_url>     Store service base url.
    --token=<token>         Bearer token for writes.
    --description=<text>    Registry description of the logo.
    --sub=<sub>             Token subject.
    --secret=<secret>       Signing secret, defaults to JWT_SECRET.
    --ttl=<ttl>             Token lifetime [default: 1h].

Kinds are content, pages and sections. Paths are dotted, array items are
addressed by index (sections.0.name). A <value> that is not JSON is stored
as a string.`

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetOutput(os.Stderr)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	opts   docopt.Opts
	cfg    *config.Config
	out    io.Writer
	api    *client.Client
	coord  *docsync.Coordinator
	ctx    context.Context
	cancel context.CancelFunc
}

func run(args []string, stdout, stderr io.Writer) int {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler, SkipHelpFlags: true}
	opts, err := parser.ParseArgs(usage, args, "")
	if err != nil {
		fmt.Fprintln(stderr, usage)
		return exitUsage
	}
	if help, _ := opts.Bool("--help"); help {
		fmt.Fprintln(stdout, usage)
		return exitOK
	}
	if version, _ := opts.Bool("--version"); version {
		fmt.Fprintln(stdout, SiteAdminVersion)
		return exitOK
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	c := &cli{opts: opts, cfg: cfg, out: stdout}

	if tok, _ := opts.Bool("token"); tok {
		err = c.token()
	} else {
		c.connect()
		defer c.cancel()
		err = c.dispatch()
	}
	return report(err, stderr)
}

func report(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case syncerr.IsConflict(err):
		fmt.Fprintf(stderr, "%v\nSomeone else saved in the meantime. Refresh and retry.\n", err)
		return exitConflict
	case syncerr.IsValidation(err):
		fmt.Fprintf(stderr, "invalid input: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

func (c *cli) connect() {
	apiURL := c.cfg.Client.APIURL
	if v, _ := c.opts.String("--api_url"); v != "" {
		apiURL = v
	}
	token := c.cfg.Client.Token
	if v, _ := c.opts.String("--token"); v != "" {
		token = v
	}
	c.api = client.New(apiURL,
		client.WithHTTPClient(&http.Client{Timeout: c.cfg.Client.Timeout}),
		client.WithToken(token),
	)
	c.coord = docsync.NewCoordinator(c.api, docsync.WithValidation(site.Validate))
	c.ctx, c.cancel = context.WithTimeout(context.Background(), commandTimeout)
}

func (c *cli) dispatch() error {
	switch {
	case c.flag("show"):
		return c.show()
	case c.flag("set"):
		return c.set()
	case c.flag("unset"):
		return c.unset()
	case c.flag("brand-color"):
		return c.brandColor()
	case c.flag("bar-height"):
		return c.barHeight()
	case c.flag("upload-logo"):
		return c.uploadLogo()
	}
	return errors.New("no command")
}

func (c *cli) flag(name string) bool {
	v, _ := c.opts.Bool(name)
	return v
}

func (c *cli) str(name string) string {
	v, _ := c.opts.String(name)
	return v
}

func (c *cli) kind() (site.Kind, error) {
	k, err := site.ParseKind(c.str("<kind>"))
	if err != nil {
		return "", &syncerr.ValidationError{Field: "kind", Value: c.str("<kind>"), Reason: err.Error()}
	}
	return k, nil
}

func (c *cli) show() error {
	kind, err := c.kind()
	if err != nil {
		return err
	}
	doc, err := docsync.NewSynchronizer(kind, c.api).Fetch(c.ctx)
	if err != nil {
		return err
	}
	v := doc.Origin
	if p := c.str("<path>"); p != "" {
		found, ok := v.Lookup(jsontree.ParsePath(p))
		if !ok {
			return syncerr.NotFound("show", kind.String()+"."+p)
		}
		v = found
	}
	out, err := jsontree.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\n# sha %s\n", out, doc.Version)
	return nil
}

func (c *cli) set() error {
	kind, err := c.kind()
	if err != nil {
		return err
	}
	raw := c.str("<value>")
	v, err := jsontree.Parse([]byte(raw))
	if err != nil {
		v = jsontree.NewString(raw)
	}
	return c.save(kind, jsontree.SetEdit(jsontree.ParsePath(c.str("<path>")), v))
}

func (c *cli) unset() error {
	kind, err := c.kind()
	if err != nil {
		return err
	}
	return c.save(kind, jsontree.UnsetEdit(jsontree.ParsePath(c.str("<path>"))))
}

func (c *cli) brandColor() error {
	edit, err := site.BrandColor(c.str("<name>"), c.str("<color>"))
	if err != nil {
		return err
	}
	return c.save(site.KindContent, edit)
}

func (c *cli) barHeight() error {
	bar := site.BarNavbar
	if c.flag("footer") {
		bar = site.BarFooter
	}
	edit, err := site.BarHeight(bar, c.str("<height>"))
	if err != nil {
		return err
	}
	return c.save(site.KindContent, edit)
}

// save loads every document and applies edit through the conflict-retry
// protocol.
func (c *cli) save(kind site.Kind, edit jsontree.Edit) error {
	if err := c.coord.Load(c.ctx); err != nil {
		return err
	}
	res, err := c.coord.UpdateAndSave(c.ctx, kind, edit)
	if err != nil {
		return err
	}
	c.printResult(res)
	return nil
}

func (c *cli) printResult(res docsync.SaveResult) {
	if res.Skipped {
		fmt.Fprintf(c.out, "%s: no changes\n", res.Kind)
		return
	}
	fmt.Fprintf(c.out, "%s: saved at %s", res.Kind, res.Document.Version)
	if res.Attempts > 1 {
		fmt.Fprintf(c.out, " after %d attempts", res.Attempts)
	}
	fmt.Fprintln(c.out)
}

func (c *cli) uploadLogo() error {
	file := c.str("<file>")
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := c.coord.Load(c.ctx); err != nil {
		return err
	}
	res, err := assets.NewUploader(c.api, c.coord).UploadLogo(c.ctx, assets.LogoUpload{
		Type:        c.str("<type>"),
		Ext:         strings.ToLower(strings.TrimPrefix(filepath.Ext(file), ".")),
		Content:     data,
		Description: c.str("--description"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logos.%s -> %s (%s)\n", res.Key, res.Path, res.FileURL)
	return nil
}

func (c *cli) token() error {
	secret := c.str("--secret")
	if secret == "" {
		secret = c.cfg.JWT.Secret
	}
	ttl, err := time.ParseDuration(c.str("--ttl"))
	if err != nil {
		return &syncerr.ValidationError{Field: "ttl", Value: c.str("--ttl"), Reason: err.Error()}
	}
	tok, err := tokens.GenerateAccessToken(secret, c.str("--sub"), ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, tok)
	return nil
}
