package crypt

import "crypto/cipher"

// cfb8 is CFB mode with an 8-bit feedback segment. crypto/cipher only ships full-block CFB.
type cfb8 struct {
	block   cipher.Block
	reg     []byte
	out     []byte
	decrypt bool
}

var _ cipher.Stream = (*cfb8)(nil)

func newCFB8(block cipher.Block, iv []byte, decrypt bool) *cfb8 {
	reg := make([]byte, block.BlockSize())
	copy(reg, iv)
	return &cfb8{
		block:   block,
		reg:     reg,
		out:     make([]byte, block.BlockSize()),
		decrypt: decrypt,
	}
}

func (x *cfb8) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("crypt: output smaller than input")
	}

	for i := range src {
		x.block.Encrypt(x.out, x.reg)

		in := src[i]
		c := in ^ x.out[0]
		dst[i] = c

		// feedback is always the ciphertext byte
		fb := c
		if x.decrypt {
			fb = in
		}
		copy(x.reg, x.reg[1:])
		x.reg[len(x.reg)-1] = fb
	}
}
