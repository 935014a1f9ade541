// registers.go - Atari ST memory map and chip register addresses

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

// ------------------------------------------------------------------------------
// Address Space Layout (24-bit bus)
// ------------------------------------------------------------------------------
const (
	ADDRESS_MASK = 0x00FFFFFF // 68000 has a 24-bit address bus

	RAM_BASE     = 0x000000
	RAM_MAX_SIZE = 4 * 1024 * 1024 // ST family tops out at 4MB

	ROM_BASE = 0xFC0000 // TOS 1.0x window
	ROM_END  = 0xFEFFFF
	ROM_SIZE = ROM_END - ROM_BASE + 1

	IO_BASE  = 0xFF0000 // Chip register window
	IO_LIMIT = 0xFFFFFF
)

// ------------------------------------------------------------------------------
// GLUE / MMU / Shifter
// ------------------------------------------------------------------------------
const (
	MMU_CONFIG = 0xFF8001 // Memory bank configuration

	SHIFTER_BASE    = 0xFF8200
	SHIFTER_END     = 0xFF82FF
	VID_BASE_HIGH   = 0xFF8201 // Video base address high byte
	VID_BASE_MID    = 0xFF8203 // Video base address mid byte
	VID_COUNT_HIGH  = 0xFF8205 // Video address counter (read only)
	VID_COUNT_MID   = 0xFF8207
	VID_COUNT_LOW   = 0xFF8209
	VID_SYNC_MODE   = 0xFF820A // Bit 1: 0=60Hz, 1=50Hz
	SHIFTER_PALETTE = 0xFF8240 // 16 word palette registers
	SHIFTER_PAL_END = 0xFF825F
	SHIFTER_RES     = 0xFF8260 // 0=low 320x200x16, 1=med 640x200x4, 2=high 640x400x1
)

// ------------------------------------------------------------------------------
// DMA / FDC
// ------------------------------------------------------------------------------
const (
	DMA_BASE      = 0xFF8600
	DMA_END       = 0xFF860F
	DMA_DATA      = 0xFF8604 // FDC/HDC register access via mode bits
	DMA_MODE      = 0xFF8606 // Write: mode/control. Read: status
	DMA_ADDR_HIGH = 0xFF8609
	DMA_ADDR_MID  = 0xFF860B
	DMA_ADDR_LOW  = 0xFF860D
)

// ------------------------------------------------------------------------------
// YM2149 PSG
// ------------------------------------------------------------------------------
const (
	PSG_BASE      = 0xFF8800
	PSG_END       = 0xFF88FF
	PSG_SELECT    = 0xFF8800 // Write: register select. Read: selected register
	PSG_DATA      = 0xFF8802 // Write: data to selected register
	PSG_REG_COUNT = 16

	PSG_CLOCK_ATARI_ST = 2000000 // 2MHz PSG clock
)

// ------------------------------------------------------------------------------
// MFP 68901
// ------------------------------------------------------------------------------
const (
	MFP_BASE = 0xFFFA00
	MFP_END  = 0xFFFA3F

	MFP_GPIP  = 0xFFFA01 // General purpose I/O
	MFP_AER   = 0xFFFA03 // Active edge register
	MFP_DDR   = 0xFFFA05 // Data direction register
	MFP_IERA  = 0xFFFA07 // Interrupt enable A
	MFP_IERB  = 0xFFFA09 // Interrupt enable B
	MFP_IPRA  = 0xFFFA0B // Interrupt pending A
	MFP_IPRB  = 0xFFFA0D // Interrupt pending B
	MFP_ISRA  = 0xFFFA0F // Interrupt in-service A
	MFP_ISRB  = 0xFFFA11 // Interrupt in-service B
	MFP_IMRA  = 0xFFFA13 // Interrupt mask A
	MFP_IMRB  = 0xFFFA15 // Interrupt mask B
	MFP_VR    = 0xFFFA17 // Vector base register
	MFP_TACR  = 0xFFFA19 // Timer A control
	MFP_TBCR  = 0xFFFA1B // Timer B control
	MFP_TCDCR = 0xFFFA1D // Timer C+D control
	MFP_TADR  = 0xFFFA1F // Timer A data
	MFP_TBDR  = 0xFFFA21 // Timer B data
	MFP_TCDR  = 0xFFFA23 // Timer C data
	MFP_TDDR  = 0xFFFA25 // Timer D data

	MFP_CLOCK = 2457600 // 2.4576MHz timer clock
)

// ------------------------------------------------------------------------------
// ACIAs (keyboard and MIDI 6850 pair)
// ------------------------------------------------------------------------------
const (
	ACIA_BASE      = 0xFFFC00
	ACIA_END       = 0xFFFC07
	ACIA_KBD_CTRL  = 0xFFFC00 // Write: control. Read: status
	ACIA_KBD_DATA  = 0xFFFC02
	ACIA_MIDI_CTRL = 0xFFFC04
	ACIA_MIDI_DATA = 0xFFFC06
)

// ------------------------------------------------------------------------------
// Machine timing
// ------------------------------------------------------------------------------
const (
	CPU_CLOCK_HZ = 8000000 // 8MHz 68000

	PAL_LINES_PER_FRAME  = 313
	PAL_CYCLES_PER_LINE  = 512
	NTSC_LINES_PER_FRAME = 263
	NTSC_CYCLES_PER_LINE = 508

	PAL_FRAME_RATE  = 50
	NTSC_FRAME_RATE = 60

	AUDIO_SAMPLE_RATE = 44100
)

// Autovector interrupt levels as wired on the ST
const (
	IRQ_LEVEL_NONE = 0
	IRQ_LEVEL_HBL  = 2
	IRQ_LEVEL_VBL  = 4
	IRQ_LEVEL_MFP  = 6
)
