package webpub

// FilterSections returns a copy of sections pruned to depth levels of
// structural nesting. The bound counts tree levels, not heading ranks: 0
// removes every node, 1 keeps root nodes and drops their children, and a
// node at exactly depth n survives with its children removed. Depths below
// zero behave as zero. The input forest is never mutated.
func FilterSections(sections []*SectionNode, depth int) []*SectionNode {
	if depth <= 0 || len(sections) == 0 {
		return nil
	}
	out := make([]*SectionNode, 0, len(sections))
	for _, s := range sections {
		out = append(out, &SectionNode{
			Level:       s.Level,
			HeadingHTML: s.HeadingHTML,
			HeadingText: s.HeadingText,
			ID:          s.ID,
			Children:    FilterSections(s.Children, depth-1),
		})
	}
	return out
}
