package regionlock

// intersects reports whether two half-open regions share any byte.
func intersects(a, b Region) bool {
	return a.Start < b.End() && b.Start < a.End()
}

// touchesOrIntersects reports whether the regions intersect or are
// adjacent at a boundary (a.End() == b.Start or b.End() == a.Start).
func touchesOrIntersects(a, b Region) bool {
	if intersects(a, b) {
		return true
	}
	return a.End() == b.Start || b.End() == a.Start
}

// regionsEqual reports whether two regions have identical bounds.
func regionsEqual(a, b Region) bool {
	return a.Start == b.Start && a.Length == b.Length
}

// unionBounds returns the smallest region covering both a and b. It does
// not require a and b to touch or intersect.
func unionBounds(a, b Region) Region {
	start := a.Start
	if b.Start < start {
		start = b.Start
	}
	end := a.End()
	if b.End() > end {
		end = b.End()
	}
	return Region{Start: start, Length: end - start}
}

// contains reports whether outer fully covers inner.
func contains(outer, inner Region) bool {
	return outer.Start <= inner.Start && inner.End() <= outer.End()
}

// Normalize converts a caller-supplied LockSpec into a stored-form Region
// with Whence == WhenceBegin and Length > 0, per the request
// normalization rules:
//
//	CURRENT -> Start += curPos
//	END     -> Start += fileSize
//	Len == 0  -> extend to end-of-file
//	Len  < 0  -> extend leftward from Start
func Normalize(spec LockSpec, curPos, fileSize int64) (Region, error) {
	start := spec.Start
	switch spec.Whence {
	case WhenceBegin:
	case WhenceCurrent:
		start += curPos
	case WhenceEnd:
		start += fileSize
	default:
		return Region{}, newError(InvalidArgument, "unsupported whence value", nil)
	}
	if start < 0 {
		return Region{}, newError(InvalidArgument, "region start is negative after normalization", nil)
	}

	length := spec.Len
	switch {
	case length == 0:
		length = fileSize - start
	case length < 0:
		start += length
		length = -length
		if start < 0 {
			return Region{}, newError(InvalidArgument, "region extends before start of file", nil)
		}
	}
	if length <= 0 {
		return Region{}, newError(InvalidArgument, "region is empty after normalization", nil)
	}
	return Region{Start: start, Length: length}, nil
}
