package branch

import (
	"context"
	"strings"

	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
)

const defaultVisionDetail = "auto"

// VisionDetector decides whether a model accepts image input.
type VisionDetector interface {
	SupportsVision(ctx context.Context, model domain.ModelConfig) bool
}

// VisionDetectorFunc adapts a function to VisionDetector.
type VisionDetectorFunc func(ctx context.Context, model domain.ModelConfig) bool

// SupportsVision implements VisionDetector.
func (f VisionDetectorFunc) SupportsVision(ctx context.Context, model domain.ModelConfig) bool {
	return f(ctx, model)
}

// NameContainsVision treats every model whose name contains "vision", in any
// letter case, as vision capable.
var NameContainsVision VisionDetector = VisionDetectorFunc(func(_ context.Context, model domain.ModelConfig) bool {
	return strings.Contains(strings.ToLower(model.Name), "vision")
})

// ModelUpdate is a partial update of the classifier model. Nil fields are kept.
type ModelUpdate struct {
	Provider         *string
	Name             *string
	Mode             *string
	CompletionParams map[string]any
}

// DefaultClasses returns the two unnamed classes a new classifier starts with.
func DefaultClasses() []domain.ClassTopic {
	return []domain.ClassTopic{
		{ID: "class_1", Name: ""},
		{ID: "class_2", Name: ""},
	}
}

// NewClassifierConfig returns the config of a freshly placed classifier.
func NewClassifierConfig() *domain.ClassifierConfig {
	return &domain.ClassifierConfig{Classes: DefaultClasses()}
}

// ClassesChange replaces the class list and reports the ids that were removed.
// Classes whose ids normalise to a branch handle already taken by an earlier
// class are dropped. Callers must delete every edge leaving the node through
// a removed class.
func ClassesChange(cfg *domain.ClassifierConfig, classes []domain.ClassTopic) (*domain.ClassifierConfig, []string) {
	out := cfg.Clone()
	out.Classes = make([]domain.ClassTopic, 0, len(classes))

	kept := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		handle := portschema.ClassBranchHandle(c.ID)
		if _, dup := kept[handle]; dup {
			continue
		}
		kept[handle] = struct{}{}
		out.Classes = append(out.Classes, c)
	}

	var removed []string
	if cfg != nil {
		for _, c := range cfg.Classes {
			if _, ok := kept[portschema.ClassBranchHandle(c.ID)]; !ok {
				removed = append(removed, c.ID)
			}
		}
	}
	return out, removed
}

// ClassHandleChanges lists the branch handles of removed class ids.
func ClassHandleChanges(removed []string) HandleChanges {
	changes := HandleChanges{Renamed: map[string]string{}}
	for _, id := range removed {
		changes.Removed = append(changes.Removed, portschema.ClassBranchHandle(id))
	}
	return changes
}

// IsRemovedClassEdge reports whether edge leaves nodeID through the branch
// handle of one of the removed classes.
func IsRemovedClassEdge(edge domain.Edge, nodeID string, removed []string) bool {
	if edge.Source != nodeID {
		return false
	}
	for _, id := range removed {
		if strings.Contains(edge.SourceHandle, portschema.ClassBranchHandle(id)) {
			return true
		}
	}
	return false
}

// ModelChange merges update into the model. When detector reports the
// resulting model as vision capable, vision is switched on.
func ModelChange(ctx context.Context, cfg *domain.ClassifierConfig, update ModelUpdate, detector VisionDetector) *domain.ClassifierConfig {
	out := cfg.Clone()
	if update.Provider != nil {
		out.Model.Provider = *update.Provider
	}
	if update.Name != nil {
		out.Model.Name = *update.Name
	}
	if update.Mode != nil {
		out.Model.Mode = *update.Mode
	}
	if update.CompletionParams != nil {
		params := make(map[string]any, len(out.Model.CompletionParams)+len(update.CompletionParams))
		for k, v := range out.Model.CompletionParams {
			params[k] = v
		}
		for k, v := range update.CompletionParams {
			params[k] = v
		}
		out.Model.CompletionParams = params
	}

	if detector == nil {
		detector = NameContainsVision
	}
	if !out.Vision.Enabled && detector.SupportsVision(ctx, out.Model) {
		out.Vision = visionConfig(true)
	}
	return out
}

// VisionToggle switches the files input on or off.
func VisionToggle(cfg *domain.ClassifierConfig, enabled bool) *domain.ClassifierConfig {
	out := cfg.Clone()
	out.Vision = visionConfig(enabled)
	return out
}

func visionConfig(enabled bool) domain.VisionConfig {
	vc := domain.VisionConfig{Enabled: enabled, Detail: defaultVisionDetail}
	if enabled {
		vc.VariableSelector = &domain.ValueSelector{}
	}
	return vc
}

// QueryVarChange sets the variable the classifier reads its query from.
func QueryVarChange(cfg *domain.ClassifierConfig, sel domain.ValueSelector) *domain.ClassifierConfig {
	out := cfg.Clone()
	out.QueryVariableSelector = sel
	return out
}

// InstructionChange sets the extra instruction given to the model.
func InstructionChange(cfg *domain.ClassifierConfig, instruction string) *domain.ClassifierConfig {
	out := cfg.Clone()
	out.Instruction = instruction
	return out
}
