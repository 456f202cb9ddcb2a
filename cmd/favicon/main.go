package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/rh1/sitetools/pkg/favicon"
)

func main() {
	path, err := run(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	color.Green("Favicon saved to '%s'", path)
}

// run builds the favicon described by the flags and returns where it was
// written.
func run(args []string) (string, error) {
	var configPath, namespace, baseDir string

	fs := flag.NewFlagSet("favicon", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "pyproject.toml", "Path to the TOML file holding [tool.<namespace>.favicon]")
	fs.StringVar(&namespace, "namespace", favicon.DefaultNamespace, "Table under [tool] that holds the favicon settings")
	fs.StringVar(&baseDir, "base-dir", "", "Directory relative font and output paths resolve against (default: working directory)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	cfg, err := favicon.LoadConfigWithOptions(configPath, favicon.LoadOptions{
		Namespace: namespace,
		BaseDir:   baseDir,
	})
	if err != nil {
		return "", err
	}

	if err := favicon.Build(cfg); err != nil {
		return "", err
	}
	return cfg.WriteTo, nil
}
