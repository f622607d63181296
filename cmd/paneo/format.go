package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/paneo/output"
)

// location is a parsed root:path argument.
type location struct {
	Root string
	Path string
}

func (l location) String() string {
	return l.Root + ":" + l.Path
}

// parseLocation splits "root:path". The path may be empty for the root itself.
func parseLocation(arg string) (location, error) {
	root, path, ok := strings.Cut(arg, ":")
	if !ok {
		return location{}, fmt.Errorf("invalid location %q: expected root:path", arg)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return location{}, fmt.Errorf("invalid location %q: missing root", arg)
	}
	return location{Root: root, Path: strings.Trim(path, "/")}, nil
}

// resolveRootID maps a root id or name to its id. Ids win over names.
func resolveRootID(roots []paneov1.Root, ref string) (string, error) {
	for _, r := range roots {
		if r.ID == ref {
			return r.ID, nil
		}
	}
	var match string
	for _, r := range roots {
		if strings.EqualFold(r.Name, ref) {
			if match != "" {
				return "", fmt.Errorf("root name %q is ambiguous, use the root id", ref)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("unknown root %q", ref)
	}
	return match, nil
}

// formatter returns the formatter selected by --output.
func formatter() (output.Formatter, error) {
	name := viper.GetString("output")
	if name == "" {
		name = output.DefaultFormat
	}
	f, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(output.Available(), ", "))
	}
	if tf, ok := f.(*output.TemplateFormatter); ok {
		if tmpl := viper.GetString("template"); tmpl != "" {
			tf.SetTemplate(tmpl)
		}
	}
	return f, nil
}

// render formats r with the selected formatter and writes it to stdout.
func render(r *output.Result) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}
