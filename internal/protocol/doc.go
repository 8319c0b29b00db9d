// Package protocol implements the wire formats shared by the pad and the host.
//
// Two transports carry protocol data:
//
//   - Datagrams: one flat JSON object per packet with a mandatory "type"
//     discriminant and a "token" field. Delivery is unordered and
//     unacknowledged; newer state supersedes older state.
//   - Image frames: a one-shot framed stream used to transfer a bitmap.
//
// # Datagram Types
//
//	move            dx, dy
//	button          button (left|right), state (down|up)
//	scroll          dx, dy (whole lines)
//	draw_begin      id, x, y, color, width
//	draw_move       id, x, y
//	draw_end        id, x, y
//	draw_undo       -
//	draw_clear      -
//	draw_erase      x, y, radius
//	draw_view       offset_x, offset_y, scale, view_w, view_h
//	image_move      id, x, y
//	image_resize    id, width, height
//	test            - (liveness probe)
//
// Unknown fields are ignored. An unknown type decodes to ErrUnknownType so
// the caller can log and drop it.
//
// # Image Frame
//
//	┌──────────────────┬─────────────┬────────────────┬─────────────┐
//	│ header_len (u32) │ header JSON │ body_len (u32) │ image bytes │
//	└──────────────────┴─────────────┴────────────────┴─────────────┘
//
// Lengths are big-endian. Each length is checked against FrameLimits before
// anything is allocated; zero or oversize lengths abort the read.
package protocol
