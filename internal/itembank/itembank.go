// Package itembank loads calibrated item banks from JSON or YAML files and
// validates them before they reach the store.
package itembank

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/selection"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

// File is the on-disk shape of an item bank.
type File struct {
	Items []ItemSpec `json:"items" yaml:"items" validate:"required,min=1"`
}

// ItemSpec is one item as authored in a bank file.
type ItemSpec struct {
	ID            string   `json:"id" yaml:"id" validate:"required"`
	Stem          string   `json:"stem" yaml:"stem" validate:"required"`
	Passage       string   `json:"passage,omitempty" yaml:"passage,omitempty"`
	Options       []string `json:"options" yaml:"options" validate:"min=2,dive,required"`
	CorrectAnswer string   `json:"correct_answer" yaml:"correct_answer" validate:"required"`
	Domain        string   `json:"domain" yaml:"domain" validate:"required,oneof=vocabulary grammar reading"`
	SkillTag      string   `json:"skill_tag,omitempty" yaml:"skill_tag,omitempty"`

	Stage  int    `json:"stage" yaml:"stage" validate:"min=1,max=3"`
	Panel  string `json:"panel" yaml:"panel" validate:"required"`
	FormID int    `json:"form_id,omitempty" yaml:"form_id,omitempty" validate:"gte=0"`

	A float64 `json:"a" yaml:"a" validate:"gt=0"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c" validate:"gte=0,lt=1"`

	Status string `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=active retired draft"`

	IsPseudoword  bool   `json:"is_pseudoword,omitempty" yaml:"is_pseudoword,omitempty"`
	FrequencyBand string `json:"frequency_band,omitempty" yaml:"frequency_band,omitempty"`
	BandSize      int    `json:"band_size,omitempty" yaml:"band_size,omitempty" validate:"gte=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(itemStructLevel, ItemSpec{})
}

// itemStructLevel checks the rules that span more than one field.
func itemStructLevel(sl validator.StructLevel) {
	it := sl.Current().Interface().(ItemSpec)

	if it.Stage >= 1 && it.Stage <= 3 && !mst.Panel(it.Panel).ValidFor(it.Stage) {
		sl.ReportError(it.Panel, "Panel", "panel", "panel_for_stage", fmt.Sprint(it.Stage))
	}
	if it.CorrectAnswer != "" && !slices.Contains(it.Options, it.CorrectAnswer) {
		sl.ReportError(it.CorrectAnswer, "CorrectAnswer", "correct_answer", "in_options", "")
	}
	if math.IsNaN(it.A) || math.IsInf(it.A, 0) {
		sl.ReportError(it.A, "A", "a", "finite", "")
	}
	if math.IsNaN(it.B) || math.IsInf(it.B, 0) {
		sl.ReportError(it.B, "B", "b", "finite", "")
	}
	if math.IsNaN(it.C) {
		sl.ReportError(it.C, "C", "c", "finite", "")
	}
	if it.Domain == store.DomainVocabulary && !it.IsPseudoword && it.FrequencyBand != "" && it.BandSize <= 0 {
		sl.ReportError(it.BandSize, "BandSize", "band_size", "required_with_band", "")
	}
}

// Load reads and validates an item bank. The format is chosen by extension:
// .json, .yaml or .yml.
func Load(path string) ([]store.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item bank: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates bank data in the format named by ext.
func Parse(data []byte, ext string) ([]store.Item, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode item bank: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode item bank: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported item bank format %q", ext)
	}

	if err := Validate(f); err != nil {
		return nil, err
	}

	items := make([]store.Item, len(f.Items))
	for i, spec := range f.Items {
		items[i] = spec.toItem()
	}
	return items, nil
}

// Validate checks every item and returns all problems found, each prefixed
// with the offending item's id.
func Validate(f File) error {
	if len(f.Items) == 0 {
		return errors.New("item bank has no items")
	}

	var errs []error
	seen := make(map[string]int, len(f.Items))
	for i, it := range f.Items {
		label := it.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if prev, dup := seen[it.ID]; dup && it.ID != "" {
			errs = append(errs, fmt.Errorf("item %s: duplicate id (first at #%d)", label, prev+1))
		}
		seen[it.ID] = i

		if err := validate.Struct(it); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return fmt.Errorf("validate item %s: %w", label, err)
			}
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("item %s: %s", label, describe(fe)))
			}
		}
	}
	return errors.Join(errs...)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "panel_for_stage":
		return fmt.Sprintf("panel %q is not valid for stage %s", fe.Value(), fe.Param())
	case "in_options":
		return fmt.Sprintf("correct answer %q is not among the options", fe.Value())
	case "finite":
		return field + " must be finite"
	case "min", "max", "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func (s ItemSpec) toItem() store.Item {
	return store.Item{
		ID:             s.ID,
		Stem:           s.Stem,
		Passage:        s.Passage,
		Options:        slices.Clone(s.Options),
		CorrectAnswer:  s.CorrectAnswer,
		Domain:         s.Domain,
		SkillTag:       s.SkillTag,
		Stage:          s.Stage,
		Panel:          s.Panel,
		FormID:         s.FormID,
		Discrimination: s.A,
		Difficulty:     s.B,
		Guessing:       s.C,
		Status:         s.Status,
		IsPseudoword:   s.IsPseudoword,
		FrequencyBand:  s.FrequencyBand,
		BandSize:       s.BandSize,
	}
}

// ToCandidate converts a stored item into a selection candidate.
func ToCandidate(it store.Item) selection.Candidate {
	return selection.Candidate{
		ID:            it.ID,
		Params:        it.Params(),
		ExposureCount: it.ExposureCount,
	}
}

// ToCandidates converts a slice of stored items.
func ToCandidates(items []store.Item) []selection.Candidate {
	out := make([]selection.Candidate, len(items))
	for i, it := range items {
		out[i] = ToCandidate(it)
	}
	return out
}
