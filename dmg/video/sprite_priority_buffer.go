package video

// SpritePriorityBuffer resolves sprite-to-sprite priority per pixel.
// On DMG hardware the sprite with the lower X coordinate wins an
// overlapping pixel; on equal X the lower OAM index wins.
//
// Instead of sorting the scanline sprites, each sprite claims its
// pixels in OAM order and claims are overturned when a higher-priority
// sprite arrives. After the claim pass each pixel knows its single
// owning sprite.
type SpritePriorityBuffer struct {
	// ownerIndex holds the OAM index owning each pixel, -1 when unowned
	ownerIndex [FramebufferWidth]int
	// ownerX holds the owning sprite's X, for priority comparison
	ownerX [FramebufferWidth]int
}

// Clear resets the buffer for a new scanline.
func (s *SpritePriorityBuffer) Clear() {
	for i := 0; i < FramebufferWidth; i++ {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

// TryClaimPixel claims a pixel for a sprite if it beats the current
// owner, and reports whether the claim succeeded.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	claim := func() bool {
		s.ownerIndex[pixelX] = spriteIndex
		s.ownerX[pixelX] = spriteX
		return true
	}

	currentOwner := s.ownerIndex[pixelX]
	if currentOwner == -1 {
		return claim()
	}
	if spriteX < s.ownerX[pixelX] {
		return claim()
	}
	if spriteX == s.ownerX[pixelX] && spriteIndex < currentOwner {
		return claim()
	}
	return false
}

// GetOwner returns the OAM index owning a pixel, or -1.
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}
