package video

// searchMotion finds the displacement (dx,dy) in [-searchRange,+searchRange]^2
// (clipped so the reference block stays inside ref's bounds) minimizing the
// sum-of-absolute-differences between cur's block at (bx,by,bw,bh) and ref's
// block at (bx+dx,by+dy,bw,bh), per spec.md §4.4. Ties are broken in scan
// order: the first minimum found wins.
func searchMotion(cur, ref Plane, bx, by, bw, bh, searchRange int) (MotionVector, int) {
	best := MotionVector{}
	bestCost := -1

	dxMin := -searchRange
	if bx+dxMin < 0 {
		dxMin = -bx
	}
	dxMax := searchRange
	if bx+bw+dxMax > ref.Width {
		dxMax = ref.Width - bw - bx
	}
	dyMin := -searchRange
	if by+dyMin < 0 {
		dyMin = -by
	}
	dyMax := searchRange
	if by+bh+dyMax > ref.Height {
		dyMax = ref.Height - bh - by
	}

	for dy := dyMin; dy <= dyMax; dy++ {
		for dx := dxMin; dx <= dxMax; dx++ {
			cost := blockSAD(cur, ref, bx, by, bx+dx, by+dy, bw, bh)
			if bestCost < 0 || cost < bestCost {
				bestCost = cost
				best = MotionVector{DX: dx, DY: dy}
			}
		}
	}
	return best, bestCost
}

// blockSAD computes the sum-of-absolute-differences between a bw*bh block of
// cur at (cx,cy) and a block of ref at (rx,ry).
func blockSAD(cur, ref Plane, cx, cy, rx, ry, bw, bh int) int {
	sad := 0
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			a := int(cur.Data[(cy+y)*cur.Width+(cx+x)])
			b := int(ref.Data[(ry+y)*ref.Width+(rx+x)])
			d := a - b
			if d < 0 {
				d = -d
			}
			sad += d
		}
	}
	return sad
}
