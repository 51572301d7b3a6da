package ot

import "unicode/utf8"

// Transform returns remote rewritten as if local had already been applied.
// Neither argument is modified. Malformed input never panics; callers are
// expected to Validate first.
func Transform(remote, local Operation) Operation {
	var out Operation
	switch {
	case remote.Kind == KindInsert && local.Kind == KindInsert:
		out = insertInsert(remote, local)
	case remote.Kind == KindDelete && local.Kind == KindDelete:
		out = deleteDelete(remote, local)
	case remote.Kind == KindInsert && local.Kind == KindDelete:
		out = insertDelete(remote, local)
	case remote.Kind == KindDelete && local.Kind == KindInsert:
		out = deleteInsert(remote, local)
	case remote.Kind == KindReplace:
		out = replaceAgainst(remote, local)
	case local.Kind == KindReplace:
		out = againstReplace(remote, local)
	default:
		out = remote
	}

	if out.Position < 0 {
		out.Position = 0
	}
	return out
}

// insertInsert pushes remote after local when local sits at or before it.
func insertInsert(remote, local Operation) Operation {
	if local.Position <= remote.Position {
		remote.Position += runeLen(local.Content)
	}
	return remote
}

func deleteDelete(remote, local Operation) Operation {
	remoteEnd := remote.Position + runeLen(remote.Content)
	localLen := runeLen(local.Content)
	localEnd := local.Position + localLen

	switch {
	case localEnd <= remote.Position:
		remote.Position = max(0, remote.Position-localLen)
	case local.Position >= remoteEnd:
	case local.Position <= remote.Position && localEnd >= remoteEnd:
		remote.Kind = KindNoop
		remote.Content = ""
	case local.Position > remote.Position && localEnd < remoteEnd:
		remote.Content = runeSlice(remote.Content, 0, local.Position-remote.Position) +
			runeSlice(remote.Content, localEnd-remote.Position, -1)
	default:
		overlapEnd := min(remoteEnd, localEnd)
		if local.Position <= remote.Position {
			remote.Content = runeSlice(remote.Content, overlapEnd-remote.Position, -1)
			remote.Position = local.Position
		} else {
			remote.Content = runeSlice(remote.Content, 0, local.Position-remote.Position)
		}
	}
	return remote
}

// insertDelete moves an insert that lands inside a deleted range to the start
// of that range.
func insertDelete(remote, local Operation) Operation {
	localLen := runeLen(local.Content)
	localEnd := local.Position + localLen

	switch {
	case localEnd <= remote.Position:
		remote.Position = max(0, remote.Position-localLen)
	case local.Position > remote.Position:
	default:
		remote.Position = local.Position
	}
	return remote
}

// deleteInsert widens a delete split by a concurrent insert so that it also
// removes the inserted text.
func deleteInsert(remote, local Operation) Operation {
	remoteEnd := remote.Position + runeLen(remote.Content)

	switch {
	case local.Position <= remote.Position:
		remote.Position += runeLen(local.Content)
	case local.Position >= remoteEnd:
	default:
		split := local.Position - remote.Position
		remote.Content = runeSlice(remote.Content, 0, split) + local.Content + runeSlice(remote.Content, split, -1)
	}
	return remote
}

// replaceAgainst splits remote into delete and insert halves, transforms each
// against local and recombines them. The delete half decides the position.
func replaceAgainst(remote, local Operation) Operation {
	del := Transform(Operation{Kind: KindDelete, Position: remote.Position, Content: remote.Removed, Timestamp: remote.Timestamp}, local)
	ins := Transform(Operation{Kind: KindInsert, Position: remote.Position, Content: remote.Content, Timestamp: remote.Timestamp + 1}, local)

	out := remote
	out.Kind = KindReplace
	out.Position = del.Position
	out.Content = ins.Content
	out.Removed = del.Content
	return out
}

// againstReplace transforms remote against the delete half of local, then
// against its insert half.
func againstReplace(remote, local Operation) Operation {
	out := Transform(remote, Operation{Kind: KindDelete, Position: local.Position, Content: local.Removed, Timestamp: local.Timestamp})
	return Transform(out, Operation{Kind: KindInsert, Position: local.Position, Content: local.Content, Timestamp: local.Timestamp + 1})
}

// Apply returns doc with op applied. Positions are clamped to the document.
func Apply(doc string, op Operation) string {
	runes := []rune(doc)
	pos := min(max(op.Position, 0), len(runes))

	switch op.Kind {
	case KindInsert:
		return string(runes[:pos]) + op.Content + string(runes[pos:])
	case KindDelete:
		end := min(pos+runeLen(op.Content), len(runes))
		return string(runes[:pos]) + string(runes[end:])
	case KindReplace:
		end := min(pos+runeLen(op.Removed), len(runes))
		return string(runes[:pos]) + op.Content + string(runes[end:])
	default:
		return doc
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// runeSlice returns s[from:to] in code points; to < 0 means the end.
func runeSlice(s string, from, to int) string {
	runes := []rune(s)
	if to < 0 || to > len(runes) {
		to = len(runes)
	}
	from = min(max(from, 0), to)
	return string(runes[from:to])
}
