package output

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/impromptu/internal/utils"
)

const (
	treeBranchConnector = "├─ "
	treeLastConnector   = "└─ "
	treeBranchPadding   = "│ "
	treeLastPadding     = "  "
	treeRootSuffix      = "/"
	treeLineTerminator  = "\n"
)

type treeNode map[string]treeNode

// RenderTree draws the selected files under root as an ASCII tree. Every ancestor
// directory of a selected file becomes a node. Directories sort before files and
// names compare byte-wise; the first line is the root's base name with a trailing slash.
func RenderTree(selectedPaths []string, root string) string {
	tree := treeNode{}
	for _, selectedPath := range selectedPaths {
		relativePath := utils.RelativePathOrSelf(selectedPath, root)
		if relativePath == "." || relativePath == utils.EmptyString {
			continue
		}
		insertTreePath(tree, strings.Split(relativePath, "/"))
	}

	var builder strings.Builder
	builder.WriteString(filepath.Base(root) + treeRootSuffix + treeLineTerminator)
	renderTreeLevel(&builder, tree, utils.EmptyString)
	return builder.String()
}

func insertTreePath(tree treeNode, segments []string) {
	current := tree
	for _, segment := range segments {
		if segment == utils.EmptyString {
			continue
		}
		child, exists := current[segment]
		if !exists {
			child = treeNode{}
			current[segment] = child
		}
		current = child
	}
}

func sortedTreeKeys(node treeNode) []string {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(leftIndex, rightIndex int) bool {
		leftIsDirectory := len(node[keys[leftIndex]]) > 0
		rightIsDirectory := len(node[keys[rightIndex]]) > 0
		if leftIsDirectory != rightIsDirectory {
			return leftIsDirectory
		}
		return keys[leftIndex] < keys[rightIndex]
	})
	return keys
}

func treeNodeLinePrefix(prefix string, isLast bool) (string, string) {
	if isLast {
		return prefix + treeLastConnector, prefix + treeLastPadding
	}
	return prefix + treeBranchConnector, prefix + treeBranchPadding
}

func renderTreeLevel(builder *strings.Builder, node treeNode, prefix string) {
	keys := sortedTreeKeys(node)
	for index, key := range keys {
		linePrefix, childPrefix := treeNodeLinePrefix(prefix, index == len(keys)-1)
		builder.WriteString(linePrefix + key + treeLineTerminator)
		if children := node[key]; len(children) > 0 {
			renderTreeLevel(builder, children, childPrefix)
		}
	}
}
