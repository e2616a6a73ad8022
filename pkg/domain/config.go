package domain

// NodeConfig is the kind-specific configuration of a node. The set of
// implementations is closed; consumers dispatch with a type switch.
type NodeConfig interface {
	Kind() NodeType
	nodeConfig()
}

// LogicalOperator joins the conditions of one if-else case.
type LogicalOperator string

// Logical operators.
const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// ComparisonOperator compares a variable against a condition value.
type ComparisonOperator string

// Comparison operators offered by the if-else node.
const (
	OpEqual        ComparisonOperator = "="
	OpNotEqual     ComparisonOperator = "≠"
	OpGreater      ComparisonOperator = ">"
	OpLess         ComparisonOperator = "<"
	OpGreaterEqual ComparisonOperator = "≥"
	OpLessEqual    ComparisonOperator = "≤"
	OpContains     ComparisonOperator = "contains"
	OpIs           ComparisonOperator = "is"
	OpIsNot        ComparisonOperator = "is not"
	OpEmpty        ComparisonOperator = "empty"
	OpNotEmpty     ComparisonOperator = "not empty"
)

// Condition is one comparison inside an if-else case.
type Condition struct {
	ID                 string             `json:"id"`
	VariableSelector   ValueSelector      `json:"variable_selector"`
	VarType            PortType           `json:"varType"`
	ComparisonOperator ComparisonOperator `json:"comparison_operator"`
	Value              string             `json:"value"`
}

// IfElseCase is one IF / ELIF branch.
type IfElseCase struct {
	CaseID          string          `json:"case_id"`
	LogicalOperator LogicalOperator `json:"logical_operator"`
	Conditions      []Condition     `json:"conditions"`
}

// IfElseConfig configures a conditional branch node. ELSE is implicit.
type IfElseConfig struct {
	Cases []IfElseCase `json:"cases"`
}

// Kind implements NodeConfig.
func (*IfElseConfig) Kind() NodeType { return NodeTypeIfElse }
func (*IfElseConfig) nodeConfig()    {}

// Clone returns a deep copy of the config.
func (c *IfElseConfig) Clone() *IfElseConfig {
	if c == nil {
		return &IfElseConfig{}
	}
	out := &IfElseConfig{Cases: make([]IfElseCase, len(c.Cases))}
	for i, cs := range c.Cases {
		out.Cases[i] = cs.Clone()
	}
	return out
}

// Clone returns a deep copy of the case.
func (c IfElseCase) Clone() IfElseCase {
	conds := make([]Condition, len(c.Conditions))
	copy(conds, c.Conditions)
	c.Conditions = conds
	return c
}

// ClassTopic is one class of an AI classifier node.
type ClassTopic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModelConfig selects the model used by an AI classifier.
type ModelConfig struct {
	Provider         string         `json:"provider"`
	Name             string         `json:"name"`
	Mode             string         `json:"mode"`
	CompletionParams map[string]any `json:"completion_params,omitempty"`
}

// VisionConfig controls whether the classifier accepts files.
type VisionConfig struct {
	Enabled          bool           `json:"enabled"`
	VariableSelector *ValueSelector `json:"variable_selector,omitempty"`
	Detail           string         `json:"detail,omitempty"`
}

// ClassifierConfig configures an AI classifier ("question-classifier") node.
type ClassifierConfig struct {
	Classes               []ClassTopic  `json:"classes"`
	Model                 ModelConfig   `json:"model"`
	Vision                VisionConfig  `json:"vision"`
	QueryVariableSelector ValueSelector `json:"query_variable_selector"`
	Instruction           string        `json:"instruction,omitempty"`
}

// Kind implements NodeConfig.
func (*ClassifierConfig) Kind() NodeType { return NodeTypeQuestionClassifier }
func (*ClassifierConfig) nodeConfig()    {}

// Clone returns a deep copy of the config.
func (c *ClassifierConfig) Clone() *ClassifierConfig {
	if c == nil {
		return &ClassifierConfig{}
	}
	out := *c
	out.Classes = append([]ClassTopic(nil), c.Classes...)
	if c.Model.CompletionParams != nil {
		out.Model.CompletionParams = make(map[string]any, len(c.Model.CompletionParams))
		for k, v := range c.Model.CompletionParams {
			out.Model.CompletionParams[k] = v
		}
	}
	if c.Vision.VariableSelector != nil {
		sel := *c.Vision.VariableSelector
		out.Vision.VariableSelector = &sel
	}
	return &out
}

// VariableGroup is one named output of an aggregator in group mode.
type VariableGroup struct {
	GroupID    string          `json:"groupId"`
	GroupName  string          `json:"group_name"`
	OutputType PortType        `json:"output_type"`
	Variables  []ValueSelector `json:"variables"`
}

// AggregatorSettings switches an aggregator between single and group mode.
type AggregatorSettings struct {
	GroupEnabled bool            `json:"group_enabled"`
	Groups       []VariableGroup `json:"groups"`
}

// VariableMapping binds a target port to a source variable path.
type VariableMapping struct {
	TargetPort string                `json:"target_port"`
	Source     VariableMappingSource `json:"source"`
}

// VariableMappingSource is the source side of a VariableMapping.
type VariableMappingSource struct {
	Variable  string   `json:"variable"`
	ValueType PortType `json:"value_type"`
}

// AggregatorConfig configures a variable aggregator ("variable-assigner") node.
type AggregatorConfig struct {
	OutputType       PortType                   `json:"output_type"`
	Variables        []ValueSelector            `json:"variables"`
	AdvancedSettings AggregatorSettings         `json:"advanced_settings"`
	VariableMappings map[string]VariableMapping `json:"variable_mappings,omitempty"`
}

// Kind implements NodeConfig.
func (*AggregatorConfig) Kind() NodeType { return NodeTypeVariableAssigner }
func (*AggregatorConfig) nodeConfig()    {}

// Clone returns a deep copy of the config.
func (c *AggregatorConfig) Clone() *AggregatorConfig {
	if c == nil {
		return &AggregatorConfig{OutputType: PortTypeAny}
	}
	out := &AggregatorConfig{
		OutputType: c.OutputType,
		Variables:  append([]ValueSelector(nil), c.Variables...),
		AdvancedSettings: AggregatorSettings{
			GroupEnabled: c.AdvancedSettings.GroupEnabled,
			Groups:       make([]VariableGroup, len(c.AdvancedSettings.Groups)),
		},
	}
	for i, g := range c.AdvancedSettings.Groups {
		g.Variables = append([]ValueSelector(nil), g.Variables...)
		out.AdvancedSettings.Groups[i] = g
	}
	if c.VariableMappings != nil {
		out.VariableMappings = make(map[string]VariableMapping, len(c.VariableMappings))
		for k, v := range c.VariableMappings {
			out.VariableMappings[k] = v
		}
	}
	return out
}

// ImportedWorkflowConfig configures a node that embeds a library workflow.
type ImportedWorkflowConfig struct {
	SourceVersionID  string                     `json:"source_version_id"`
	TemplateName     string                     `json:"template_name,omitempty"`
	TemplateVersion  string                     `json:"template_version,omitempty"`
	InternalGraph    *Workflow                  `json:"internal_graph,omitempty"`
	VariableMappings map[string]VariableMapping `json:"variable_mappings,omitempty"`
	IsExpanded       bool                       `json:"is_expanded"`
	ReadOnly         bool                       `json:"read_only"`
}

// Kind implements NodeConfig.
func (*ImportedWorkflowConfig) Kind() NodeType { return NodeTypeImportedWorkflow }
func (*ImportedWorkflowConfig) nodeConfig()    {}

// StaticConfig is the config of node kinds whose ports never change.
type StaticConfig struct {
	Type NodeType       `json:"-"`
	Data map[string]any `json:"data,omitempty"`
}

// Kind implements NodeConfig.
func (c *StaticConfig) Kind() NodeType { return c.Type }
func (*StaticConfig) nodeConfig()      {}
