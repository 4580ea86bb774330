// Package repo loads the contact directory from a file
package repo

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"sentinel/internal/core/validate"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/services/ident/domain"

	"gopkg.in/yaml.v3"
)

// File is a domain.Loader over an XML or YAML file, chosen by extension
type File struct {
	path  string
	reads atomic.Int64
}

var _ domain.Loader = (*File)(nil)

// readFile is a seam for tests
var readFile = os.ReadFile

// NewFile returns a loader for path
func NewFile(path string) *File { return &File{path: path} }

// Path returns the configured file path
func (f *File) Path() string { return f.path }

// Reads returns how many times the file has been read
func (f *File) Reads() int64 { return f.reads.Load() }

// Load reads, parses and validates the file
func (f *File) Load(ctx context.Context) (domain.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDirectory, "contacts: load canceled")
	}
	if strings.TrimSpace(f.path) == "" {
		return nil, perr.Directoryf("contacts: no directory file configured")
	}
	f.reads.Add(1)
	raw, err := readFile(f.path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDirectory, "contacts: read %s", f.path)
	}
	return Parse(f.path, raw)
}

// Parse decodes data using the format implied by name's extension
func Parse(name string, data []byte) (domain.Directory, error) {
	var (
		dir domain.Directory
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xml":
		dir, err = parseXML(data)
	case ".yaml", ".yml":
		dir, err = parseYAML(data)
	default:
		return nil, perr.Directoryf("contacts: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDirectory, "contacts: decode %s", filepath.Base(name))
	}
	for i, c := range dir {
		if verr := validate.Struct(c); verr != nil {
			return nil, perr.Wrapf(verr, perr.ErrorCodeDirectory, "contacts: entry %d", i+1)
		}
	}
	return dir, nil
}

// xmlContact keeps raw attributes so missing ones can default to the placeholder
type xmlContact struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type xmlDirectory struct {
	Contacts []xmlContact `xml:"contact"`
}

// attr returns the named attribute, or the placeholder when it is missing or blank
func (x xmlContact) attr(name string) string {
	for _, a := range x.Attrs {
		if a.Name.Local == name {
			return orPlaceholder(a.Value)
		}
	}
	return domain.Unknown
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return domain.Unknown
}

func parseXML(data []byte) (domain.Directory, error) {
	var doc xmlDirectory
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	out := make(domain.Directory, 0, len(doc.Contacts))
	for _, c := range doc.Contacts {
		out = append(out, domain.Contact{
			Email:        c.attr("email"),
			Name:         c.attr("name"),
			Organization: c.attr("org"),
		})
	}
	return out, nil
}

type yamlContact struct {
	Email *string `yaml:"email"`
	Name  *string `yaml:"name"`
	Org   *string `yaml:"org"`
}

func orUnknown(p *string) string {
	if p == nil {
		return domain.Unknown
	}
	return orPlaceholder(*p)
}

func parseYAML(data []byte) (domain.Directory, error) {
	var items []yamlContact
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	out := make(domain.Directory, 0, len(items))
	for _, c := range items {
		out = append(out, domain.Contact{
			Email:        orUnknown(c.Email),
			Name:         orUnknown(c.Name),
			Organization: orUnknown(c.Org),
		})
	}
	return out, nil
}

// Static is an in-memory domain.Loader
type Static struct {
	Dir   domain.Directory
	Err   error
	reads atomic.Int64
}

// Load returns Dir or Err
func (s *Static) Load(context.Context) (domain.Directory, error) {
	s.reads.Add(1)
	return s.Dir, s.Err
}

// Reads returns how many times Load ran
func (s *Static) Reads() int64 { return s.reads.Load() }
