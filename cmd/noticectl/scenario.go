package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/NathanaelAtEGR/unf/notice"
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// Step operations.
const (
	opDefine     = "define"
	opRemove     = "remove"
	opSet        = "set"
	opMute       = "mute"
	opUnmute     = "unmute"
	opEditTarget = "edit-target"
	opBegin      = "begin"
	opEnd        = "end"
	opAbort      = "abort"
	opBatch      = "batch"
)

// noticeTypes maps the short notice names accepted in scenarios to type
// identifiers.
var noticeTypes = map[string]string{
	"ContentsChanged":    notice.TypeContentsChanged,
	"EditTargetChanged":  notice.TypeEditTargetChanged,
	"ObjectsChanged":     notice.TypeObjectsChanged,
	"LayerMutingChanged": notice.TypeLayerMutingChanged,
	"HierarchyChanged":   notice.TypeHierarchyChanged,
}

// Scenario is a replayable sequence of stage edits.
type Scenario struct {
	Name      string   `yaml:"name"`
	DiffCache bool     `yaml:"diff_cache"`
	Prims     []string `yaml:"prims" validate:"dive,required,scenepath"`
	Steps     []Step   `yaml:"steps" validate:"required,min=1,dive"`
}

// Step is one scenario operation. Batch steps nest.
type Step struct {
	Op     string   `yaml:"op" validate:"required,oneof=define remove set mute unmute edit-target begin end abort batch"`
	Path   string   `yaml:"path" validate:"required_if=Op define,required_if=Op remove,required_if=Op set,scenepath"`
	Field  string   `yaml:"field" validate:"required_if=Op set"`
	Layer  string   `yaml:"layer" validate:"required_if=Op mute,required_if=Op unmute"`
	Target string   `yaml:"target"`
	Types  []string `yaml:"types" validate:"dive,noticetype"`
	Steps  []Step   `yaml:"steps" validate:"required_if=Op batch,dive"`
}

var scenarioValidate *validator.Validate

func init() {
	scenarioValidate = validator.New()
	_ = scenarioValidate.RegisterValidation("scenepath", validateScenePath)
	_ = scenarioValidate.RegisterValidation("noticetype", validateNoticeType)
}

// validateScenePath accepts empty strings; presence is checked by required tags.
func validateScenePath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := scenepath.Parse(s)
	return err == nil
}

func validateNoticeType(fl validator.FieldLevel) bool {
	_, ok := noticeTypes[fl.Field().String()]
	return ok
}

var errEmptyScenario = errors.New("scenario: empty document")

// loadScenario decodes and validates a scenario. Unknown keys are rejected.
func loadScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyScenario
		}
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	if err := scenarioValidate.Struct(&sc); err != nil {
		return nil, fmt.Errorf("scenario: invalid: %w", err)
	}
	return &sc, nil
}

// predicate returns a capture predicate accepting the given notice types, or
// nil when types is empty.
func predicate(types []string) func(notice.Notice) bool {
	if len(types) == 0 {
		return nil
	}
	accept := make(map[string]struct{}, len(types))
	for _, t := range types {
		accept[noticeTypes[t]] = struct{}{}
	}
	return func(n notice.Notice) bool {
		_, ok := accept[n.TypeID()]
		return ok
	}
}
