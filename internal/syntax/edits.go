package syntax

import (
	"bytes"

	"github.com/sergi/go-diff/diffmatchpatch"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ComputeEdits turns the difference between two revisions of a document
// into an edit batch for Update, sorted ascending by start byte. All
// offsets are against the old revision except NewEndByte, which is the
// start offset plus the length of the inserted text; that is the shape
// Update expects when it applies edits back to front.
func ComputeEdits(oldSource, newSource []byte) []tree_sitter.InputEdit {
	if bytes.Equal(oldSource, newSource) {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(oldSource), string(newSource), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var edits []tree_sitter.InputEdit
	oldPos := uint(0)
	oldPoint := tree_sitter.Point{}

	for i := 0; i < len(diffs); {
		d := diffs[i]
		if d.Type == diffmatchpatch.DiffEqual {
			oldPos += uint(len(d.Text))
			oldPoint = advancePoint(oldPoint, d.Text)
			i++
			continue
		}

		// A delete directly followed by an insert is a replacement and
		// becomes a single edit.
		var removed, inserted string
		if d.Type == diffmatchpatch.DiffDelete {
			removed = d.Text
			i++
			if i < len(diffs) && diffs[i].Type == diffmatchpatch.DiffInsert {
				inserted = diffs[i].Text
				i++
			}
		} else {
			inserted = d.Text
			i++
		}

		startPoint := oldPoint
		oldEnd := oldPos + uint(len(removed))
		oldEndPoint := advancePoint(startPoint, removed)
		newEndPoint := advancePoint(startPoint, inserted)

		edits = append(edits, tree_sitter.InputEdit{
			StartByte:      oldPos,
			OldEndByte:     oldEnd,
			NewEndByte:     oldPos + uint(len(inserted)),
			StartPosition:  startPoint,
			OldEndPosition: oldEndPoint,
			NewEndPosition: newEndPoint,
		})

		oldPos = oldEnd
		oldPoint = oldEndPoint
	}
	return edits
}

// advancePoint moves a point across text, with columns counted in bytes as
// tree-sitter expects.
func advancePoint(p tree_sitter.Point, text string) tree_sitter.Point {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			p.Row++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}
