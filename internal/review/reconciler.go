package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/careform/medextract/internal/api"
)

// Conditions raised by draft editing.
var (
	// ErrMalformedInput marks a draft that failed local validation. It is
	// raised before any network traffic.
	ErrMalformedInput = errors.New("malformed input")

	// ErrSaveInFlight rejects a second save on a section whose previous
	// save has not resolved. An overlapping save on a stale base could
	// silently revert a human correction.
	ErrSaveInFlight = errors.New("save already in flight for this section")

	// ErrUnknownSection rejects operations on keys that are not editable
	// sections of the current document.
	ErrUnknownSection = errors.New("unknown or non-editable section")
)

// wholeDocKey serializes whole-document saves the same way per-section
// saves are serialized.
const wholeDocKey = "\x00document"

// Reconciler manages human corrections to one extracted document. It
// holds the authoritative copy (replaced wholesale by every successful
// save response), per-section unsaved draft text, and the per-section
// in-flight save guard.
type Reconciler struct {
	client *api.Client
	jobID  string
	log    *zap.SugaredLogger

	schemas map[string]*jsonschema.Schema

	mu     sync.Mutex
	doc    *api.ExtractedDocument
	drafts map[string]string
	saving map[string]bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger attaches a logger. Nil is replaced with a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Reconciler) { r.log = log }
}

// New builds a reconciler over doc, which becomes the authoritative
// in-memory copy for this edit session.
func New(client *api.Client, doc *api.ExtractedDocument, opts ...Option) (*Reconciler, error) {
	if doc == nil {
		return nil, errors.New("review: nil document")
	}
	r := &Reconciler{
		client: client,
		jobID:  doc.JobID,
		doc:    doc,
		drafts: make(map[string]string),
		saving: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = zap.NewNop().Sugar()
	}

	schemas, err := compileSectionSchemas()
	if err != nil {
		return nil, fmt.Errorf("compile section schemas: %w", err)
	}
	r.schemas = schemas
	return r, nil
}

func compileSectionSchemas() (map[string]*jsonschema.Schema, error) {
	compiled := make(map[string]*jsonschema.Schema)
	for key, schemaMap := range BuildSectionSchemas() {
		b, err := json.Marshal(schemaMap)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", key, err)
		}
		compiler := jsonschema.NewCompiler()
		name := key + ".schema.json"
		if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", key, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", key, err)
		}
		compiled[key] = schema
	}
	return compiled, nil
}

// Sections returns the editable section keys of the current document in
// canonical order.
func (r *Reconciler) Sections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.doc.Data))
	for _, key := range SectionOrder {
		if _, ok := r.doc.Data[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Document returns the current authoritative document.
func (r *Reconciler) Document() *api.ExtractedDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// LoadDraft derives fresh editable text for a section from the
// authoritative document, never from a previous draft, and replaces any
// stored draft for that section.
func (r *Reconciler) LoadDraft(sectionKey string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := r.sectionValueLocked(sectionKey)
	if err != nil {
		return "", err
	}
	text, err := prettyJSON(raw)
	if err != nil {
		return "", err
	}
	r.drafts[sectionKey] = text
	return text, nil
}

// Draft returns the unsaved draft for a section, or fresh authoritative
// text when no edit is in progress.
func (r *Reconciler) Draft(sectionKey string) (string, error) {
	r.mu.Lock()
	if text, ok := r.drafts[sectionKey]; ok {
		r.mu.Unlock()
		return text, nil
	}
	r.mu.Unlock()
	return r.LoadDraft(sectionKey)
}

// SetDraft stores in-progress edit text for a section.
func (r *Reconciler) SetDraft(sectionKey, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.sectionValueLocked(sectionKey); err != nil {
		return err
	}
	r.drafts[sectionKey] = text
	return nil
}

// Reset discards the unsaved draft and reloads from the authoritative
// document.
func (r *Reconciler) Reset(sectionKey string) (string, error) {
	r.mu.Lock()
	delete(r.drafts, sectionKey)
	r.mu.Unlock()
	return r.LoadDraft(sectionKey)
}

// ValidateDraft checks draft text locally: it must parse as JSON and,
// for known sections, match the section's shape schema. Failures are
// ErrMalformedInput and never reach the network. On success the parsed
// value is returned ready for Save.
func (r *Reconciler) ValidateDraft(sectionKey, text string) (json.RawMessage, error) {
	r.mu.Lock()
	_, err := r.sectionValueLocked(sectionKey)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if schema, ok := r.schemas[sectionKey]; ok {
		if err := schema.Validate(value); err != nil {
			return nil, fmt.Errorf("%w: section %s: %v", ErrMalformedInput, sectionKey, err)
		}
	}
	// The raw text is kept as the value so human key ordering survives.
	compact := new(bytes.Buffer)
	if err := json.Compact(compact, []byte(text)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return json.RawMessage(compact.Bytes()), nil
}

// Save submits one section's corrected value for a server-side merge and
// reconciles the returned document as the new source of truth. The draft
// for that section is discarded; drafts on other sections are untouched.
// Only one save per section may be in flight at a time.
func (r *Reconciler) Save(ctx context.Context, sectionKey string, value json.RawMessage) (*api.ExtractedDocument, error) {
	r.mu.Lock()
	if _, err := r.sectionValueLocked(sectionKey); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if r.saving[sectionKey] {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSaveInFlight, sectionKey)
	}
	r.saving[sectionKey] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.saving, sectionKey)
		r.mu.Unlock()
	}()

	updated, err := r.client.UpdateExtracted(ctx, r.jobID, map[string]json.RawMessage{sectionKey: value})
	if err != nil {
		// Failed saves leave the document and the draft untouched.
		return nil, err
	}

	r.mu.Lock()
	r.doc = updated
	delete(r.drafts, sectionKey)
	r.mu.Unlock()

	r.log.Infow("review.section_saved", "job_id", r.jobID, "section", sectionKey)
	return updated, nil
}

// LoadDocumentDraft derives editable text for the whole document
// (legacy-compatible mode: one textarea, one validate, one save).
func (r *Reconciler) LoadDocumentDraft() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(r.doc.Data)
	if err != nil {
		return "", err
	}
	text, err := prettyJSON(raw)
	if err != nil {
		return "", err
	}
	r.drafts[wholeDocKey] = text
	return text, nil
}

// ValidateDocumentDraft checks whole-document draft text: a JSON object
// whose known sections each match their shape schema.
func (r *Reconciler) ValidateDocumentDraft(text string) (map[string]json.RawMessage, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	for key, raw := range sections {
		schema, ok := r.schemas[key]
		if !ok {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: section %s: %v", ErrMalformedInput, key, err)
		}
		if err := schema.Validate(value); err != nil {
			return nil, fmt.Errorf("%w: section %s: %v", ErrMalformedInput, key, err)
		}
	}
	return sections, nil
}

// SaveDocument submits the whole document as a single unit with the same
// serialization guarantee as per-section saves.
func (r *Reconciler) SaveDocument(ctx context.Context, sections map[string]json.RawMessage) (*api.ExtractedDocument, error) {
	r.mu.Lock()
	if r.saving[wholeDocKey] {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: document", ErrSaveInFlight)
	}
	r.saving[wholeDocKey] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.saving, wholeDocKey)
		r.mu.Unlock()
	}()

	updated, err := r.client.UpdateExtracted(ctx, r.jobID, sections)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.doc = updated
	delete(r.drafts, wholeDocKey)
	r.mu.Unlock()

	r.log.Infow("review.document_saved", "job_id", r.jobID, "sections", len(sections))
	return updated, nil
}

// sectionValueLocked resolves a section's authoritative raw value. The
// caller holds r.mu.
func (r *Reconciler) sectionValueLocked(sectionKey string) (json.RawMessage, error) {
	if !editableSection(sectionKey) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionKey)
	}
	raw, ok := r.doc.Data[sectionKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionKey)
	}
	return raw, nil
}

func editableSection(key string) bool {
	for _, k := range SectionOrder {
		if k == key {
			return true
		}
	}
	return false
}

func prettyJSON(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indent section: %w", err)
	}
	return buf.String(), nil
}
