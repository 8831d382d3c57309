package ast

// ComputeLayout assigns offsets to fields in declaration order and returns
// the record's overall size and alignment. Packed layouts use no padding
// (every field aligns to 1); non-packed layouts align each field to
// min(fieldSize, 8) and take the record's alignment as the largest field
// alignment. Size is the end of the last field rounded up to the record's
// alignment.
func ComputeLayout(fields []LayoutField, packed bool) (size, align int) {
	align = 1
	offset := 0
	for i := range fields {
		fieldSize := fields[i].Size
		fieldAlign := 1
		if !packed {
			fieldAlign = fieldSize
			if fieldAlign > 8 {
				fieldAlign = 8
			}
			if fieldAlign < 1 {
				fieldAlign = 1
			}
			if fieldAlign > align {
				align = fieldAlign
			}
		}
		offset = alignUp(offset, fieldAlign)
		fields[i].Offset = offset
		offset += fieldSize
	}
	size = alignUp(offset, align)
	return size, align
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}
