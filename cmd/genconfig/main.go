// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig(), annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
// With -check it only reports whether the committed file is current.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/hyprshutdown/internal/atomicfile"
	"tools.zach/dev/hyprshutdown/internal/config"
)

// defaultOut is relative to internal/config, where go generate runs. With
// go.mod at the root, ../../ reaches the file embedded by configdata.go.
const defaultOut = "../../config.default.toml"

func main() {
	out := flag.String("o", defaultOut, "output file")
	check := flag.Bool("check", false, "exit 1 if the output file is out of date instead of writing it")
	flag.Parse()

	rendered, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}

	if *check {
		current, err := os.ReadFile(*out)
		if err != nil || !bytes.Equal(current, []byte(rendered)) {
			fmt.Fprintf(os.Stderr, "%s is out of date; run go generate ./internal/config\n", *out)
			os.Exit(1)
		}
		return
	}

	if err := atomicfile.Write(*out, []byte(rendered), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

// render encodes cfg as TOML and annotates every key and section found in
// docs. Documented keys the encoder omitted are added as comments at the end
// of their section.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	a := newAnnotator(docs)
	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			// Spacing is managed by the annotator.
		case strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[["):
			a.section(trimmed)
		case strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, "="):
			a.emit(trimmed)
		default:
			a.field(trimmed)
		}
	}
	return a.String(), nil
}

// ///////////////////////////////////////////////
// Annotator
// ///////////////////////////////////////////////

// annotator accumulates the output file line by line.
type annotator struct {
	docs map[string]config.FieldDoc
	out  []string
	// current is the dotted path of the section being written, "" at root.
	current string
	// seen records the dotted keys already written.
	seen map[string]bool
}

func newAnnotator(docs map[string]config.FieldDoc) *annotator {
	a := &annotator{docs: docs, seen: map[string]bool{}}
	a.emit(
		"# ///////////////////////////////////////////////",
		"# hyprshutdown Configuration",
		"# ///////////////////////////////////////////////",
		"",
	)
	return a
}

func (a *annotator) emit(lines ...string) {
	a.out = append(a.out, lines...)
}

// comment writes text as "# " lines; empty text writes nothing.
func (a *annotator) comment(text string) {
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		a.emit("# " + l)
	}
}

// section closes the current section and starts the one in header.
func (a *annotator) section(header string) {
	a.flushOmitted()
	a.current = strings.Trim(header, "[] ")
	a.emit("", fmt.Sprintf("# ///// %s /////", sectionTitle(a.current)), "")
	a.comment(a.docs[a.current].Comment)
	a.emit(header)
}

// field writes one key = value line with its docs.
func (a *annotator) field(line string) {
	key := strings.TrimSpace(strings.SplitN(line, "=", 2)[0])
	path := a.path(key)
	a.seen[path] = true

	doc, ok := a.docs[path]
	if !ok {
		a.emit(line)
		return
	}
	a.comment(doc.Comment)
	a.emit(line)
	for _, alt := range doc.Alternatives {
		a.emit("# " + alt)
	}
}

// flushOmitted writes documented keys of the current section that the
// encoder left out, typically omitempty fields at their zero value. Keys are
// sorted for deterministic output.
func (a *annotator) flushOmitted() {
	if a.current == "" {
		return
	}
	prefix := a.current + "."
	var omitted []string
	for path := range a.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || a.seen[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := a.docs[path]
		a.emit("")
		a.comment(doc.Comment)
		for _, alt := range doc.Alternatives {
			a.emit("# " + alt)
		}
		a.seen[path] = true
	}
}

// path returns the dotted path of key in the current section.
func (a *annotator) path(key string) string {
	if a.current == "" {
		return key
	}
	return a.current + "." + key
}

// String finishes the last section and returns the file contents.
func (a *annotator) String() string {
	a.flushOmitted()
	return strings.TrimRight(strings.Join(a.out, "\n"), "\n") + "\n"
}

// sectionTitle returns the display name of a dotted section: the last segment,
// upper-cased when it is an abbreviation of two letters or fewer and
// capitalized otherwise. "ui" yields "UI", "apps.ignore" yields "Ignore".
func sectionTitle(section string) string {
	last := section[strings.LastIndex(section, ".")+1:]
	switch {
	case last == "":
		return ""
	case len(last) <= 2:
		return strings.ToUpper(last)
	default:
		return strings.ToUpper(last[:1]) + last[1:]
	}
}
