// Package store owns .vscode/buildData.json: existence checks, corruption
// recovery, loading, merging and atomic rewrites.
package store

import (
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/logging"
)

//go:embed template.json
var defaultTemplate []byte

// Outcome reports which branch EnsureExists took.
type Outcome int

const (
	// OutcomeExisting means a valid document was already present.
	OutcomeExisting Outcome = iota
	// OutcomeCreated means no document existed and the template was written.
	OutcomeCreated
	// OutcomeRecovered means an unreadable document was replaced by the template.
	OutcomeRecovered
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRecovered:
		return "recovered"
	default:
		return "existing"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Stamp carries the bookkeeping fields written on every persist.
type Stamp struct {
	Version string
	LastRun time.Time
}

// Store is the on-disk configuration document.
type Store struct {
	path     string
	template []byte
	logger   *zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTemplate replaces the built-in template.
func WithTemplate(template []byte) Option {
	return func(s *Store) {
		s.template = template
	}
}

// WithLogger sets the logger used to report recovery branches.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a store backed by path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		template: defaultTemplate,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the buildData.json path inside the .vscode directory of root.
func Path(root string) string {
	return filepath.Join(root, constants.VSCodeDir, constants.BuildDataFileName)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Template returns a fresh copy of the template document.
func (s *Store) Template() (*document.Document, error) {
	doc, err := document.Parse(s.template)
	if err != nil {
		return nil, errors.NewConfigError("store", "invalid template", err)
	}
	return doc, nil
}

// EnsureExists creates the document from the template when it is absent,
// and replaces it when it cannot be read as a JSON object. The previous
// content of a replaced document is not salvaged.
func (s *Store) EnsureExists() (Outcome, error) {
	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		if err := s.writeTemplate(); err != nil {
			return OutcomeCreated, err
		}
		s.logger.Info().Str("path", s.path).Msg("New buildData.json file created")
		return OutcomeCreated, nil
	}

	if _, err := s.read(); err != nil {
		if errors.Classify(err) != errors.ClassRecoverable {
			return OutcomeExisting, err
		}
		s.logger.Warn().
			Err(err).
			Str("path", s.path).
			Msg("Invalid buildData.json file (invalid JSON or comments), creating new one")
		if err := s.writeTemplate(); err != nil {
			return OutcomeRecovered, err
		}
		return OutcomeRecovered, nil
	}

	s.logger.Info().Str("path", s.path).Msg("Existing buildData.json file found")
	return OutcomeExisting, nil
}

// Peek returns the document EnsureExists and Load would produce, and the
// outcome EnsureExists would report, without writing anything.
func (s *Store) Peek() (*document.Document, Outcome, error) {
	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		doc, err := s.Template()
		return doc, OutcomeCreated, err
	}

	doc, err := s.read()
	if err == nil {
		return doc, OutcomeExisting, nil
	}
	if errors.Classify(err) != errors.ClassRecoverable {
		return nil, OutcomeExisting, err
	}
	s.logger.Warn().Err(err).Str("path", s.path).Msg("Invalid buildData.json file, it would be replaced")
	doc, err = s.Template()
	return doc, OutcomeRecovered, err
}

// Load returns the current document. EnsureExists must have run; any error
// here is fatal.
func (s *Store) Load() (*document.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, errors.WrapParse("json", s.path, err)
	}
	return doc, nil
}

// Persist stamps VERSION and LAST_RUN and rewrites the document atomically.
func (s *Store) Persist(doc *document.Document, stamp Stamp) error {
	out := doc.Clone()
	if err := out.Set(constants.KeyVersion, stamp.Version); err != nil {
		return err
	}
	if err := out.Set(constants.KeyLastRun, stamp.LastRun.Format(constants.LastRunFormat)); err != nil {
		return err
	}

	data, err := out.MarshalIndent(constants.DocumentIndent)
	if err != nil {
		return errors.WrapParse("json", s.path, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Info().Str("path", s.path).Msg("buildData.json file updated")
	return nil
}

// read classifies every read or parse failure of an existing file as corrupt.
func (s *Store) read() (*document.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.NewCorruptDocumentError(s.path, err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, errors.NewCorruptDocumentError(s.path, err)
	}
	return doc, nil
}

func (s *Store) writeTemplate() error {
	doc, err := s.Template()
	if err != nil {
		return err
	}
	data, err := doc.MarshalIndent(constants.DocumentIndent)
	if err != nil {
		return errors.WrapParse("json", s.path, err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers never observe a half-written document. The mode
// of an existing file is kept.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(constants.FilePermissions)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.WrapIO("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
