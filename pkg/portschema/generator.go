// Package portschema derives the typed input and output ports of a node from
// its configuration. Every generator is a pure function: equal configs yield
// equal schemas.
package portschema

import (
	"fmt"
	"strings"

	"github.com/polisai/polis-flow/pkg/domain"
)

// Output handles and port names with fixed meaning.
const (
	IfHandle            = "if"
	ElseHandle          = "else"
	elifPrefix          = "elif_"
	ClassPrefix         = "class_"
	BranchSuffix        = "_branch"
	AggregatorOutput    = "output"
	GroupOutputSuffix   = ".output"
	ClassNamePort       = "class_name"
	UsagePort           = "usage"
	QueryPort           = "query"
	FilesPort           = "files"
	unnamedClassDisplay = "Unnamed"
)

// IfElse generates the schema of a conditional branch node. Inputs are empty;
// each case becomes an "if" / "elif_N" boolean output followed by "else".
func IfElse(cases []domain.IfElseCase) domain.NodePortSchema {
	outputs := make([]domain.PortDefinition, 0, len(cases)+1)
	for i := range cases {
		name, display := CaseHandle(i), caseDisplayName(i)
		outputs = append(outputs, domain.PortDefinition{
			Name:        name,
			Type:        domain.PortTypeBoolean,
			Required:    true,
			Description: display + " branch output (conditions matched)",
			DisplayName: display,
		})
	}
	outputs = append(outputs, domain.PortDefinition{
		Name:        ElseHandle,
		Type:        domain.PortTypeBoolean,
		Required:    true,
		Description: "ELSE branch output (no conditions matched)",
		DisplayName: "ELSE",
	})

	return domain.NodePortSchema{
		Inputs:  []domain.PortDefinition{},
		Outputs: outputs,
	}
}

// CaseHandle is the output handle of the case at index.
func CaseHandle(index int) string {
	if index == 0 {
		return IfHandle
	}
	return fmt.Sprintf("%s%d", elifPrefix, index)
}

func caseDisplayName(index int) string {
	if index == 0 {
		return "IF"
	}
	return fmt.Sprintf("ELIF %d", index)
}

// QuestionClassifier generates the schema of an AI classifier node.
func QuestionClassifier(classes []domain.ClassTopic, vision domain.VisionConfig) domain.NodePortSchema {
	inputs := []domain.PortDefinition{{
		Name:        QueryPort,
		Type:        domain.PortTypeString,
		Required:    true,
		Description: "Text to classify",
		DisplayName: "Query",
	}}
	if vision.Enabled {
		inputs = append(inputs, domain.PortDefinition{
			Name:        FilesPort,
			Type:        domain.PortTypeArrayFile,
			Required:    false,
			Description: "Image files for vision classification",
			DisplayName: "Files",
		})
	}

	outputs := make([]domain.PortDefinition, 0, len(classes)+2)
	outputs = append(outputs,
		domain.PortDefinition{
			Name:        ClassNamePort,
			Type:        domain.PortTypeString,
			Required:    true,
			Description: "Selected class name",
			DisplayName: "Class Name",
		},
		domain.PortDefinition{
			Name:        UsagePort,
			Type:        domain.PortTypeObject,
			Required:    true,
			Description: "LLM token usage information",
			DisplayName: "Usage",
		},
	)

	for _, class := range classes {
		display := class.Name
		if display == "" {
			display = unnamedClassDisplay
		}
		outputs = append(outputs, domain.PortDefinition{
			Name:        ClassBranchHandle(class.ID),
			Type:        domain.PortTypeBoolean,
			Required:    true,
			Description: "Branch for class: " + display,
			DisplayName: display,
		})
	}

	return domain.NodePortSchema{Inputs: inputs, Outputs: outputs}
}

// ClassBranchHandle returns "class_{id}_branch", adding the class_ prefix only
// when the id does not already carry it.
func ClassBranchHandle(classID string) string {
	base := classID
	if !strings.HasPrefix(base, ClassPrefix) {
		base = ClassPrefix + base
	}
	return base + BranchSuffix
}

// VariableAggregator generates the schema of a variable aggregator node.
func VariableAggregator(cfg *domain.AggregatorConfig) domain.NodePortSchema {
	if cfg == nil {
		cfg = &domain.AggregatorConfig{OutputType: domain.PortTypeAny}
	}

	if !cfg.AdvancedSettings.GroupEnabled {
		return domain.NodePortSchema{
			Inputs: []domain.PortDefinition{},
			Outputs: []domain.PortDefinition{{
				Name:        AggregatorOutput,
				Type:        outputType(cfg.OutputType),
				Required:    true,
				Description: "Aggregated variable output",
				DisplayName: "Output",
			}},
		}
	}

	outputs := make([]domain.PortDefinition, 0, len(cfg.AdvancedSettings.Groups))
	for _, group := range cfg.AdvancedSettings.Groups {
		outputs = append(outputs, domain.PortDefinition{
			Name:        GroupOutputHandle(group.GroupName),
			Type:        outputType(group.OutputType),
			Required:    true,
			Description: group.GroupName + " group output",
			DisplayName: group.GroupName,
		})
	}
	return domain.NodePortSchema{Inputs: []domain.PortDefinition{}, Outputs: outputs}
}

// GroupOutputHandle is the output handle of an aggregator group.
func GroupOutputHandle(groupName string) string {
	return groupName + GroupOutputSuffix
}

func outputType(t domain.PortType) domain.PortType {
	if t == "" {
		return domain.PortTypeAny
	}
	return t
}

// ForConfig generates the schema for any config whose ports are derived from
// configuration. ok is false for kinds whose ports are supplied externally
// (imported workflows) or unknown kinds.
func ForConfig(cfg domain.NodeConfig) (domain.NodePortSchema, bool) {
	switch c := cfg.(type) {
	case *domain.IfElseConfig:
		return IfElse(c.Cases), true
	case *domain.ClassifierConfig:
		return QuestionClassifier(c.Classes, c.Vision), true
	case *domain.AggregatorConfig:
		return VariableAggregator(c), true
	case *domain.StaticConfig:
		return Static(c.Type)
	default:
		return domain.NodePortSchema{}, false
	}
}

// ForNode returns the effective schema of a node. Config-driven kinds are
// always regenerated; fixed kinds keep their persisted ports and fall back to
// the built-in schema.
func ForNode(node domain.Node) (domain.NodePortSchema, bool) {
	cfg := node.Data.Config
	if cfg == nil {
		if node.Data.Ports != nil {
			return node.Data.Ports.Clone(), true
		}
		cfg, _ = domain.DecodeNodeConfig(node.Type, nil)
	}

	switch cfg.(type) {
	case *domain.StaticConfig, *domain.ImportedWorkflowConfig:
		if node.Data.Ports != nil {
			return node.Data.Ports.Clone(), true
		}
	}
	return ForConfig(cfg)
}
