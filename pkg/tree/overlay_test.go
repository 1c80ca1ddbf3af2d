package tree

import "testing"

func file(name string) *Node {
	return &Node{Name: name}
}

func dir(name string, children ...*Node) *Node {
	return &Node{Name: name, IsDir: true, Children: children}
}

func TestMergeOverlayUpperOverridesFile(t *testing.T) {
	lower := New(dir("/", file("a")))
	upper := New(dir("/", &Node{Name: "a", Size: 42}))

	MergeOverlay(lower, upper)

	root := lower.Root
	if len(root.Children) != 1 || root.Children[0].Size != 42 {
		t.Fatalf("expected upper's /a to replace lower's, got %+v", root.Children)
	}
	if root.Children[0].Overlay != OverlayUpperModification {
		t.Fatalf("overlay = %v, want UpperModification", root.Children[0].Overlay)
	}
}

func TestMergeOverlayWhiteoutDeletes(t *testing.T) {
	lower := New(dir("/", dir("dir", file("x"))))
	upper := New(dir("/", dir("dir", &Node{Name: "x", Whiteout: true})))

	MergeOverlay(lower, upper)

	d := lower.Root.Children[0]
	if d.Name != "dir" {
		t.Fatalf("expected /dir to survive, got %+v", lower.Root.Children)
	}
	if len(d.Children) != 0 {
		t.Fatalf("expected /dir/x removed by whiteout, got %+v", d.Children)
	}
}

func TestMergeOverlayOpaqueReplacesChildren(t *testing.T) {
	lower := New(dir("/", dir("d", file("a"), file("b"))))
	upper := New(dir("/", &Node{Name: "d", IsDir: true, Opaque: true, Children: []*Node{file("c")}}))

	MergeOverlay(lower, upper)

	d := lower.Root.Children[0]
	if len(d.Children) != 1 || d.Children[0].Name != "c" {
		t.Fatalf("expected only /d/c after opaque replace, got %+v", d.Children)
	}
	if d.Overlay != OverlayUpperOpaque {
		t.Fatalf("overlay = %v, want UpperOpaque", d.Overlay)
	}
}

func TestMergeOverlayRetainsLowerOnly(t *testing.T) {
	lower := New(dir("/", file("only-in-lower")))
	upper := New(dir("/", file("new")))

	MergeOverlay(lower, upper)

	names := map[string]bool{}
	for _, c := range lower.Root.Children {
		names[c.Name] = true
	}
	if !names["only-in-lower"] || !names["new"] {
		t.Fatalf("expected both paths retained, got %+v", lower.Root.Children)
	}
}

func TestMergeOverlayNilLowerAdoptsUpper(t *testing.T) {
	lower := New(nil)
	upper := New(dir("/", file("a")))

	MergeOverlay(lower, upper)

	if lower.Root != upper.Root {
		t.Fatalf("expected lower to adopt upper's root wholesale")
	}
}

func TestWalkBFSOrder(t *testing.T) {
	root := dir("/", file("a"), dir("b", file("c")))
	tr := New(root)

	var visited []string
	err := tr.WalkBFS(true, func(n *Node) error {
		visited = append(visited, n.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBFS: %v", err)
	}
	want := []string{"/", "a", "b", "c"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}
