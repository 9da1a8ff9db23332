// TMC UART CRC-8 - port of the crc8 helper in klippy/extras/tmc_uart.py
//
// Copyright (C) 2018-2019  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcuart

// CRC8 computes the CRC-8 (polynomial 0x07, init 0) used by TMC UART
// frames. Data bits are fed least significant first.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (crc>>7)^(b&1) != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
			b >>= 1
		}
	}
	return crc
}
