// sharectl runs the anonymization engine offline: it assembles bundles from
// files, classifies and transforms single values, and resolves trust against
// an organization fixture.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
	"github.com/jmerrifield20/intelshare/internal/config"
	"github.com/jmerrifield20/intelshare/internal/sharing"
	"github.com/jmerrifield20/intelshare/internal/trust"
	"github.com/jmerrifield20/intelshare/pkg/stix"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	out       io.Writer
	configDir string
	verbose   bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "sharectl",
		Short: "Offline tooling for the intelshare anonymization engine",
		Long: `sharectl applies intelshare's trust resolution and anonymization
rules to local files, without a running server or database.

Configuration is read from intelshare.yaml in --config-dir (default:
configs, then the working directory) and from environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var dirs []string
			if c.configDir != "" {
				dirs = []string{c.configDir}
			}
			cfg, err := config.Load(dirs...)
			if err != nil {
				return err
			}
			c.cfg = cfg
			if c.verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				c.logger = l
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "", "directory containing intelshare.yaml")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log engine decisions to stderr")

	root.AddCommand(
		c.anonymizeCmd(),
		c.detectCmd(),
		c.transformCmd(),
		c.resolveCmd(),
		c.versionCmd(),
	)
	return root
}

// ── anonymize ────────────────────────────────────────────────────────────────

func (c *cli) anonymizeCmd() *cobra.Command {
	var orgsFile, requester, publisher, source string

	cmd := &cobra.Command{
		Use:   "anonymize <file>",
		Short: "Assemble an anonymized bundle for a requesting organization",
		Long: `anonymize reads either a sharing request
({"requesting_org", "publisher_org", "records": [{"source_org", "object"}]})
or a plain STIX bundle, and prints the bundle the requester would receive.

For a plain bundle every object is attributed to --source. --requester and
--publisher override the values in a request file.

  sharectl anonymize --orgs orgs.json --requester gov --source uni-a bundle.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(orgsFile)
			if err != nil {
				return err
			}
			req, err := readRequest(args[0], source)
			if err != nil {
				return err
			}
			if requester != "" {
				req.RequestingOrg = requester
			}
			if publisher != "" {
				req.PublisherOrg = publisher
			}
			if req.PublisherOrg == "" {
				req.PublisherOrg = c.cfg.Platform.PublisherOrg
			}

			store := fixture.MemoryStore()
			resolver := trust.NewResolver(store, c.cfg.ResolverConfig(), c.logger)
			svc := sharing.New(store, resolver, c.cfg.Anonymizer(), nil,
				sharing.Config{Workers: c.cfg.Sharing.Workers}, c.logger)

			out, err := svc.Assemble(cmd.Context(), *req)
			if err != nil {
				return err
			}
			return c.printJSON(map[string]any{
				"bundle":   out.Bundle,
				"excluded": out.Excluded,
				"warnings": out.Warnings,
			})
		},
	}
	cmd.Flags().StringVar(&orgsFile, "orgs", "", "organization fixture (JSON)")
	cmd.Flags().StringVar(&requester, "requester", "", "requesting organization id")
	cmd.Flags().StringVar(&publisher, "publisher", "", "publishing organization id (default platform.publisher_org)")
	cmd.Flags().StringVar(&source, "source", "", "source organization for every object of a plain bundle")
	_ = cmd.MarkFlagRequired("orgs")
	return cmd
}

func readRequest(path, source string) (*sharing.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if head.Type != "bundle" {
		var req sharing.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return &req, nil
	}

	if source == "" {
		return nil, fmt.Errorf("%s is a STIX bundle: --source is required", path)
	}
	b, err := stix.ParseBundle(data)
	if err != nil {
		return nil, err
	}
	req := &sharing.Request{Records: make([]sharing.Record, 0, len(b.Objects))}
	for _, o := range b.Objects {
		req.Records = append(req.Records, sharing.Record{SourceOrg: source, Object: o})
	}
	return req, nil
}

// ── detect ───────────────────────────────────────────────────────────────────

func (c *cli) detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <value> [value] ...",
		Short: "Classify values into data categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			for _, v := range args {
				fmt.Fprintf(w, "%s\t%s\n", v, anonymize.Detect(v))
			}
			return w.Flush()
		},
	}
}

// ── transform ────────────────────────────────────────────────────────────────

func (c *cli) transformCmd() *cobra.Command {
	var levelName string

	cmd := &cobra.Command{
		Use:   "transform <value> [value] ...",
		Short: "Anonymize single values at a given level",
		Long: `transform detects each value's category and prints it anonymized at
--level. Values of no known category are printed unchanged.

  sharectl transform --level medium 192.168.1.100 malicious.example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := anonymize.ParseLevel(levelName)
			if err != nil {
				return err
			}
			table := c.cfg.Anonymizer().Table()

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			for _, v := range args {
				anon, cat, err := table.AnonymizeValue(v, level)
				if err != nil {
					return fmt.Errorf("%s: %w", v, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", cat, v, anon)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&levelName, "level", "l", "full", "anonymization level: none, low, medium, high or full")
	return cmd
}

// ── resolve ──────────────────────────────────────────────────────────────────

func (c *cli) resolveCmd() *cobra.Command {
	var orgsFile, source, target string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the trust score and level between two organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(orgsFile)
			if err != nil {
				return err
			}
			resolver := trust.NewResolver(fixture.MemoryStore(), c.cfg.ResolverConfig(), c.logger)
			res := resolver.Resolve(cmd.Context(), source, target)

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "SOURCE\tTARGET\tSCORE\tLEVEL\tBASIS\n")
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", source, target, res.Score, res.Level, res.Basis)
			if res.Err != nil {
				fmt.Fprintf(w, "\nreason: %v\n", res.Err)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&orgsFile, "orgs", "", "organization fixture (JSON)")
	cmd.Flags().StringVar(&source, "source", "", "source (publishing) organization id")
	cmd.Flags().StringVar(&target, "target", "", "target (requesting) organization id")
	_ = cmd.MarkFlagRequired("orgs")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// ── version ──────────────────────────────────────────────────────────────────

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sharectl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.out, "sharectl %s\n", version)
		},
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func loadFixture(path string) (*trust.Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return trust.LoadFixture(f)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

