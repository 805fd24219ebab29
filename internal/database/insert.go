package database

// Insert commits stmt into root, spec §4.4's edit-commit counterpart to
// LocateAfter: a theorem statement sharing an existing theorem's label
// replaces it in place wherever it occurs, otherwise stmt is inserted at
// the position anchor designates. A nil anchor appends stmt at the very
// end of the tree's last header, matching
// add_statement_at_end_memory. AnchorStart inserts at the very front of
// root's own content; AnchorHeader inserts as the first content statement
// under the header the anchor's HeaderPath names — becoming its first
// child, not literally following the header node itself, matching
// add_statement_locate_after_memory's own LocateAfterHeader branch. Every
// other anchor kind searches a header's own content for the first matching
// statement before descending into its subheaders in turn, inserting
// immediately after the match — the same search order
// add_statement_locate_after_memory uses. Grounded on
// original_source/src-tauri/src/editor/add_to_database.rs's add_statement
// and its two memory-side helpers.
//
// Replacing an existing label is not something add_to_database.rs itself
// implements — the original is insert-only, with no replace or delete path
// anywhere in the editor module — but a committed theorem must be
// updatable by a later edit of the same proof, so it is added here as a
// deliberate extension beyond the original.
func Insert(root *Header, anchor *Anchor, stmt Statement) error {
	if stmt.Kind == KindTheorem && replaceExisting(root, stmt.Theorem.Label, stmt) {
		return nil
	}

	if anchor == nil {
		target := lastHeader(root)
		target.Content = append(target.Content, stmt)
		return nil
	}

	switch anchor.Kind {
	case AnchorStart:
		root.Content = append([]Statement{stmt}, root.Content...)
		return nil
	case AnchorHeader:
		h, ok := anchor.HeaderPath.At(root)
		if !ok {
			return ErrAnchorNotFound
		}
		h.Content = append([]Statement{stmt}, h.Content...)
		return nil
	}

	if insertAfterMatch(root, HeaderPath{}, *anchor, stmt) {
		return nil
	}
	return ErrAnchorNotFound
}

// replaceExisting finds the KindTheorem statement labeled label anywhere
// in h's subtree and overwrites it with stmt, reporting whether one was
// found.
func replaceExisting(h *Header, label string, stmt Statement) bool {
	for i := range h.Content {
		if h.Content[i].Kind == KindTheorem && h.Content[i].Theorem.Label == label {
			h.Content[i] = stmt
			return true
		}
	}
	for i := range h.Subheaders {
		if replaceExisting(&h.Subheaders[i], label, stmt) {
			return true
		}
	}
	return false
}

// lastHeader descends the rightmost subheader chain from h, returning the
// header whose own content a file-end append belongs in.
func lastHeader(h *Header) *Header {
	for len(h.Subheaders) > 0 {
		h = &h.Subheaders[len(h.Subheaders)-1]
	}
	return h
}

// insertAfterMatch walks h's own content (at the accumulated path from
// root) looking for the first statement anchor matches, inserting stmt
// immediately after it; failing that, it tries each subheader in turn.
func insertAfterMatch(h *Header, path HeaderPath, anchor Anchor, stmt Statement) bool {
	for i := range h.Content {
		el := Element{
			Kind:         ElementStatement,
			StatementRef: StatementRef{HeaderPath: path, Index: i},
			Statement:    &h.Content[i],
		}
		if anchorMatches(anchor, el) {
			h.Content = append(h.Content[:i+1:i+1], append([]Statement{stmt}, h.Content[i+1:]...)...)
			return true
		}
	}
	for i := range h.Subheaders {
		if insertAfterMatch(&h.Subheaders[i], path.Child(i), anchor, stmt) {
			return true
		}
	}
	return false
}
