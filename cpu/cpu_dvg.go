// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// The vector generator's instructions are 16-bit words stored low byte
// first, and its fields are bit fields rather than whole bytes. The
// short-vector scale is split across two bits with its low bit first.
func tableDVG() []opcodeData {
	var t []opcodeData
	for scale := 0; scale < 10; scale++ {
		t = append(t, opcodeData{
			fmt.Sprintf("VEC SCALE=%d, BRI=b, X=x, Y=y", scale),
			fmt.Sprintf("%04b_0yyy_yyyy_yyyy bbbb_0xxx_xxxx_xxxx", scale),
			"y=const,b=const,x=const",
		})
	}
	t = append(t,
		opcodeData{"CUR SCALE=s, X=x, Y=y", "1010_00yy_yyyy_yyyy ssss_00xx_xxxx_xxxx", "s=const,x=const,y=const"},
		opcodeData{"HALT", "1011_0000_0000_0000", ""},
		opcodeData{"JSR a", "1100_aaaa_aaaa_aaaa", "a=code"},
		opcodeData{"RTS", "1101_0000_bbbb_bbbb", ""},
		opcodeData{"JMP a", "1110_aaaa_aaaa_aaaa", "a=code"},
		opcodeData{"SVEC SCALE=c, BRI=b, X=x, Y=y", "1111_cyyy_bbbb_cxxx", "c=const_rev,b=const,x=const,y=const"},
	)
	return t
}

func newDVG() (*CPU, error) {
	return newCPU("DVG", "Atari digital vector generator", true, tableDVG(), Hooks{})
}
