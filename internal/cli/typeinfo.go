package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fastreports/clickhouse/types"
)

var typeMaxDepth int

var typeCmd = &cobra.Command{
	Use:     "type DESCRIPTION",
	Short:   "Parse a column type description and print its tree",
	Example: `  chq type 'Map(String, Array(Nullable(UInt64)))'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := &types.Parser{MaxDepth: typeMaxDepth}
		root, err := parser.Parse(args[0])

		if err != nil {
			pterm.Error.Println(err)
			return err
		}

		pterm.Println(root.String())

		return pterm.DefaultTree.WithRoot(pterm.TreeNode{
			Children: []pterm.TreeNode{treeNode(root)},
		}).Render()
	},
}

func init() {
	typeCmd.Flags().IntVar(&typeMaxDepth, "max-depth", types.DefaultMaxDepth, "maximum nesting depth")
}

func treeNode(node *types.Node) pterm.TreeNode {
	children := make([]pterm.TreeNode, len(node.Children))

	for i, child := range node.Children {
		children[i] = treeNode(child)
	}

	return pterm.TreeNode{
		Text:     node.Value,
		Children: children,
	}
}
