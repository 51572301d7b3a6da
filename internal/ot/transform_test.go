package ot

import "testing"

const base = "abcdefghij"

func TestTransformInsertInsert(t *testing.T) {
	remote := Operation{Kind: KindInsert, Position: 5, Content: "X"}

	cases := []struct {
		name  string
		local Operation
		want  int
	}{
		{"local before", Operation{Kind: KindInsert, Position: 2, Content: "ab"}, 7},
		{"tie pushes remote after local", Operation{Kind: KindInsert, Position: 5, Content: "YY"}, 7},
		{"local after", Operation{Kind: KindInsert, Position: 8, Content: "ZZZ"}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Transform(remote, tc.local)
			if got.Kind != KindInsert || got.Position != tc.want || got.Content != "X" {
				t.Fatalf("unexpected result: %+v", got)
			}
		})
	}
	if remote.Position != 5 {
		t.Fatalf("remote mutated: %+v", remote)
	}
}

func TestTransformDeleteDelete(t *testing.T) {
	cases := []struct {
		name        string
		remote      Operation
		local       Operation
		wantKind    Kind
		wantPos     int
		wantContent string
	}{
		{
			name:        "local entirely before",
			remote:      Operation{Kind: KindDelete, Position: 6, Content: "gh"},
			local:       Operation{Kind: KindDelete, Position: 1, Content: "bc"},
			wantKind:    KindDelete,
			wantPos:     4,
			wantContent: "gh",
		},
		{
			name:        "local entirely after",
			remote:      Operation{Kind: KindDelete, Position: 1, Content: "bc"},
			local:       Operation{Kind: KindDelete, Position: 6, Content: "gh"},
			wantKind:    KindDelete,
			wantPos:     1,
			wantContent: "bc",
		},
		{
			name:        "local contains remote",
			remote:      Operation{Kind: KindDelete, Position: 3, Content: "de"},
			local:       Operation{Kind: KindDelete, Position: 2, Content: "cdef"},
			wantKind:    KindNoop,
			wantPos:     3,
			wantContent: "",
		},
		{
			name:        "remote contains local",
			remote:      Operation{Kind: KindDelete, Position: 1, Content: "bcdef"},
			local:       Operation{Kind: KindDelete, Position: 3, Content: "de"},
			wantKind:    KindDelete,
			wantPos:     1,
			wantContent: "bcf",
		},
		{
			name:        "overlap at remote start",
			remote:      Operation{Kind: KindDelete, Position: 3, Content: "defg"},
			local:       Operation{Kind: KindDelete, Position: 1, Content: "bcde"},
			wantKind:    KindDelete,
			wantPos:     1,
			wantContent: "fg",
		},
		{
			name:        "overlap at remote end",
			remote:      Operation{Kind: KindDelete, Position: 1, Content: "bcde"},
			local:       Operation{Kind: KindDelete, Position: 3, Content: "defg"},
			wantKind:    KindDelete,
			wantPos:     1,
			wantContent: "bc",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Transform(tc.remote, tc.local)
			if got.Kind != tc.wantKind || got.Position != tc.wantPos || got.Content != tc.wantContent {
				t.Fatalf("got %+v, want kind=%s pos=%d content=%q", got, tc.wantKind, tc.wantPos, tc.wantContent)
			}
		})
	}
}

func TestTransformInsertDelete(t *testing.T) {
	local := Operation{Kind: KindDelete, Position: 2, Content: "cde"}

	if got := Transform(Operation{Kind: KindInsert, Position: 8, Content: "X"}, local); got.Position != 5 {
		t.Fatalf("insert after delete: got %+v", got)
	}
	if got := Transform(Operation{Kind: KindInsert, Position: 1, Content: "X"}, local); got.Position != 1 {
		t.Fatalf("insert before delete: got %+v", got)
	}
	if got := Transform(Operation{Kind: KindInsert, Position: 4, Content: "X"}, local); got.Position != 2 {
		t.Fatalf("insert inside delete should move to range start: got %+v", got)
	}
}

func TestTransformDeleteInsert(t *testing.T) {
	if got := Transform(Operation{Kind: KindDelete, Position: 4, Content: "ef"}, Operation{Kind: KindInsert, Position: 2, Content: "XY"}); got.Position != 6 || got.Content != "ef" {
		t.Fatalf("insert before delete: got %+v", got)
	}
	if got := Transform(Operation{Kind: KindDelete, Position: 1, Content: "bc"}, Operation{Kind: KindInsert, Position: 5, Content: "XY"}); got.Position != 1 || got.Content != "bc" {
		t.Fatalf("insert after delete: got %+v", got)
	}
	got := Transform(Operation{Kind: KindDelete, Position: 1, Content: "bcd"}, Operation{Kind: KindInsert, Position: 2, Content: "XY"})
	if got.Position != 1 || got.Content != "bXYcd" {
		t.Fatalf("split delete should absorb insert: got %+v", got)
	}
}

func TestTransformReplace(t *testing.T) {
	remote := Operation{Kind: KindReplace, Position: 4, Content: "Z", Removed: "ef", Timestamp: 10}
	got := Transform(remote, Operation{Kind: KindInsert, Position: 1, Content: "XX"})
	if got.Kind != KindReplace || got.Position != 6 || got.Content != "Z" || got.Removed != "ef" || got.Timestamp != 10 {
		t.Fatalf("replace against insert: got %+v", got)
	}

	local := Operation{Kind: KindReplace, Position: 2, Content: "WXYZ", Removed: "cd"}
	ins := Transform(Operation{Kind: KindInsert, Position: 6, Content: "Q"}, local)
	if ins.Position != 8 {
		t.Fatalf("insert against replace: got %+v", ins)
	}
	if a, b := Apply(Apply(base, local), ins), "abWXYZefQghij"; a != b {
		t.Fatalf("got %q, want %q", a, b)
	}
}

func TestTransformNoopPassThrough(t *testing.T) {
	noop := Operation{Kind: KindNoop, Position: 3}
	if got := Transform(noop, Operation{Kind: KindInsert, Position: 0, Content: "abc"}); got != noop {
		t.Fatalf("noop changed: %+v", got)
	}
	ins := Operation{Kind: KindInsert, Position: 3, Content: "q"}
	if got := Transform(ins, noop); got != ins {
		t.Fatalf("transform against noop changed op: %+v", got)
	}
}

// Both peers put their own text first when inserting at the same offset, so
// the documents diverge. Kept as-is; both endpoints apply the same rule.
func TestTransformInsertTieDiverges(t *testing.T) {
	a := Operation{Kind: KindInsert, Position: 3, Content: "A"}
	b := Operation{Kind: KindInsert, Position: 3, Content: "B"}

	left := Apply(Apply(base, a), Transform(b, a))
	right := Apply(Apply(base, b), Transform(a, b))
	if left != "abcABdefghij" || right != "abcBAdefghij" {
		t.Fatalf("tie-break behaviour changed: %q / %q", left, right)
	}
}

// A delete split by a concurrent insert swallows the inserted text on one
// side only.
func TestTransformWidenedDeleteRemovesConcurrentInsert(t *testing.T) {
	del := Operation{Kind: KindDelete, Position: 1, Content: "bcd"}
	ins := Operation{Kind: KindInsert, Position: 2, Content: "Q"}

	left := Apply(Apply(base, ins), Transform(del, ins))
	right := Apply(Apply(base, del), Transform(ins, del))
	if left != "aefghij" || right != "aQefghij" {
		t.Fatalf("widened delete behaviour changed: %q / %q", left, right)
	}
}

// Replace is decomposed into delete+insert, which inherits the widened delete
// behaviour for inserts landing inside the removed range.
func TestTransformReplaceDecompositionAgainstInnerInsert(t *testing.T) {
	doc := "abcdef"
	rep := Operation{Kind: KindReplace, Position: 1, Content: "X", Removed: "bcd"}
	ins := Operation{Kind: KindInsert, Position: 2, Content: "Q"}

	tr := Transform(rep, ins)
	if tr.Removed != "bQcd" || tr.Position != 1 {
		t.Fatalf("unexpected replace transform: %+v", tr)
	}
	left := Apply(Apply(doc, ins), tr)
	right := Apply(Apply(doc, rep), Transform(ins, rep))
	if left != "aXef" || right != "aXQef" {
		t.Fatalf("replace decomposition behaviour changed: %q / %q", left, right)
	}
}

func TestApply(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		op   Operation
		want string
	}{
		{"insert", "hello", Operation{Kind: KindInsert, Position: 5, Content: " world"}, "hello world"},
		{"insert clamps past end", "abc", Operation{Kind: KindInsert, Position: 99, Content: "X"}, "abcX"},
		{"delete", "hello world", Operation{Kind: KindDelete, Position: 5, Content: " world"}, "hello"},
		{"delete clamps to length", "abc", Operation{Kind: KindDelete, Position: 2, Content: "cdef"}, "ab"},
		{"replace", "hello world", Operation{Kind: KindReplace, Position: 6, Content: "there", Removed: "world"}, "hello there"},
		{"noop", "abc", Operation{Kind: KindNoop, Position: 1}, "abc"},
		{"unknown kind", "abc", Operation{Kind: "move", Position: 1}, "abc"},
		{"code points", "héllo", Operation{Kind: KindDelete, Position: 1, Content: "é"}, "hllo"},
		{"negative position clamps", "abc", Operation{Kind: KindInsert, Position: -4, Content: "X"}, "Xabc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Apply(tc.doc, tc.op); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
