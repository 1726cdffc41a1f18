package video

// spritePriorityBuffer resolves per-pixel sprite ownership for DMG
// rendering without sorting the scanline's sprite list.
//
// The PPU's priority rules between overlapping sprites:
//   - the sprite with the lower X coordinate wins
//   - on equal X, the lower OAM index wins
//
// Each sprite claims the pixels it covers during a selection pass; the
// render pass then only draws pixels a sprite actually owns.
type spritePriorityBuffer struct {
	ownerIndex [FramebufferWidth]int
	ownerX     [FramebufferWidth]int
}

// clear resets ownership for a new scanline.
func (b *spritePriorityBuffer) clear() {
	for i := range FramebufferWidth {
		b.ownerIndex[i] = -1
		b.ownerX[i] = 0xFF
	}
}

// tryClaim attempts to claim a pixel for a sprite, applying the priority
// rules above. Off-screen pixels are rejected.
func (b *spritePriorityBuffer) tryClaim(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	owner := b.ownerIndex[pixelX]
	if owner != -1 {
		if spriteX > b.ownerX[pixelX] {
			return false
		}
		if spriteX == b.ownerX[pixelX] && spriteIndex > owner {
			return false
		}
	}

	b.ownerIndex[pixelX] = spriteIndex
	b.ownerX[pixelX] = spriteX
	return true
}

// owner returns the sprite index owning the pixel, or -1.
func (b *spritePriorityBuffer) owner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return b.ownerIndex[pixelX]
}
