package extract

import (
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

var moduleSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "module", LabelNames: []string{"name"}},
	},
}

var moduleBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "source"},
	},
}

// TerraformExtractor reads module calls from Terraform configuration. Each
// module block with a literal source becomes a config dependency.
type TerraformExtractor struct{}

func (e *TerraformExtractor) Language() Language { return Terraform }

func (e *TerraformExtractor) Extract(filePath string, content []byte) ([]depgraph.DependencyRecord, error) {
	f, diags := hclparse.NewParser().ParseHCL(content, filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filePath, diags)
	}

	body, _, diags := f.Body.PartialContent(moduleSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", filePath, diags)
	}

	dir := sourceModule(filePath)
	var out []depgraph.DependencyRecord
	for _, block := range body.Blocks {
		attrs, _, diags := block.Body.PartialContent(moduleBodySchema)
		if diags.HasErrors() {
			continue
		}
		attr, ok := attrs.Attributes["source"]
		if !ok {
			continue
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
			continue
		}

		name := block.Labels[0]
		out = append(out, depgraph.DependencyRecord{
			SourceModule: dir,
			TargetModule: moduleTarget(dir, val.AsString()),
			Kind:         depgraph.KindConfig,
			Strength:     1.0,
			FilePath:     filePath,
			Line:         attr.Range.Start.Line,
			ElementName:  name,
			Description:  "terraform module " + name,
		})
	}
	return out, nil
}

// moduleTarget resolves local sources against the calling directory so that
// "../network" names the sibling directory rather than collapsing to the root.
func moduleTarget(dir, source string) string {
	if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		return path.Join(dir, source)
	}
	return source
}
