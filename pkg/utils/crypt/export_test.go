package crypt

import "crypto/cipher"

func NewCFB8ForTest(block cipher.Block, iv []byte, decrypt bool) cipher.Stream {
	return newCFB8(block, iv, decrypt)
}
