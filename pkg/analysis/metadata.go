package analysis

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/wehubfusion/modelchain/pkg/model"
)

// ExtractMetadata returns the metadata view of an artifact. When a process
// model is available its size is added under "nodes" and "edges".
func ExtractMetadata(a *model.Artifact, pm *model.ProcessModel) model.Metadata {
	md := model.Metadata(a.Describe())
	if pm != nil {
		md["nodes"] = int64(pm.NodeCount())
		md["edges"] = int64(pm.EdgeCount())
	}
	return md
}

// MetadataExpr is a compiled CEL predicate over an artifact's metadata, bound
// to the variable "metadata", e.g. `metadata.origin == "sap" && metadata.revision > 1`.
type MetadataExpr struct {
	Expression string
	program    cel.Program
}

// CompileMetadataExpr compiles expression; it must evaluate to a bool.
func CompileMetadataExpr(expression string) (*MetadataExpr, error) {
	if expression == "" {
		return nil, fmt.Errorf("metadata expression is empty")
	}
	env, err := cel.NewEnv(
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error compiling CEL expression: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("metadata expression must be boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL program: %w", err)
	}
	return &MetadataExpr{Expression: expression, program: prg}, nil
}

// Eval runs the expression against md. A missing key is an evaluation error;
// guard optional keys with `has(metadata.key)`.
func (e *MetadataExpr) Eval(md model.Metadata) (bool, error) {
	out, _, err := e.program.Eval(map[string]any{
		"metadata": map[string]any(md),
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating CEL expression: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("metadata expression returned %T, want bool", out.Value())
	}
	return b, nil
}
