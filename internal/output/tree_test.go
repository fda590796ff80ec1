package output

import (
	"path/filepath"
	"testing"
)

func TestRenderTree(t *testing.T) {
	root := filepath.FromSlash("/work/proj")
	testCases := []struct {
		name     string
		selected []string
		expected string
	}{
		{
			name:     "directory before sibling file",
			selected: []string{"/work/proj/sub/b.txt", "/work/proj/a.txt"},
			expected: "proj/\n├─ sub\n│ └─ b.txt\n└─ a.txt\n",
		},
		{
			name:     "empty selection",
			selected: nil,
			expected: "proj/\n",
		},
		{
			name: "directories before files and byte order ties",
			selected: []string{
				"/work/proj/Zeta.txt",
				"/work/proj/alpha.txt",
				"/work/proj/lib/util/x.go",
				"/work/proj/lib/main.go",
				"/work/proj/docs/readme.md",
			},
			expected: "proj/\n" +
				"├─ docs\n" +
				"│ └─ readme.md\n" +
				"├─ lib\n" +
				"│ ├─ util\n" +
				"│ │ └─ x.go\n" +
				"│ └─ main.go\n" +
				"├─ Zeta.txt\n" +
				"└─ alpha.txt\n",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			selected := make([]string, 0, len(testCase.selected))
			for _, path := range testCase.selected {
				selected = append(selected, filepath.FromSlash(path))
			}
			rendered := RenderTree(selected, root)
			if rendered != testCase.expected {
				t.Fatalf("unexpected tree:\n%q\nwant:\n%q", rendered, testCase.expected)
			}
		})
	}
}

func TestRenderTreeIsDeterministic(t *testing.T) {
	selected := []string{"/proj/c/d.txt", "/proj/a.txt", "/proj/c/e/f.txt", "/proj/b.txt"}
	first := RenderTree(selected, "/proj")
	for iteration := 0; iteration < 10; iteration++ {
		if again := RenderTree(selected, "/proj"); again != first {
			t.Fatalf("render %d differs:\n%q\nwant:\n%q", iteration, again, first)
		}
	}
}
