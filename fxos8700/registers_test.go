package fxos8700

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The read sequences rely on six-byte bursts with register auto-increment,
// so the output windows have to be contiguous.
func TestRegisters_BurstLayout(t *testing.T) {
	accel := []byte{regOutXMsb, regOutXLsb, regOutYMsb, regOutYLsb, regOutZMsb, regOutZLsb}
	for i := range accel {
		assert.Equal(t, accel[0]+byte(i), accel[i])
	}
	mag := []byte{regMOutXMsb, regMOutXLsb, regMOutYMsb, regMOutYLsb, regMOutZMsb, regMOutZLsb}
	for i := range mag {
		assert.Equal(t, mag[0]+byte(i), mag[i])
	}
	assert.Equal(t, regCtrlReg4+1, regCtrlReg5, "arm write programs both in one transfer")
}
