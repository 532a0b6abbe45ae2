package fxos8700

// Register map of the FXOS8700CQ. Accelerometer output and control live in
// the 0x00-0x31 block, magnetometer output, offset and control in 0x32-0x5e,
// vector magnitude and freefall/motion thresholds above that.
const (
	regStatus         byte = 0x00
	regOutXMsb        byte = 0x01
	regOutXLsb        byte = 0x02
	regOutYMsb        byte = 0x03
	regOutYLsb        byte = 0x04
	regOutZMsb        byte = 0x05
	regOutZLsb        byte = 0x06
	regFSetup         byte = 0x09
	regTrigCfg        byte = 0x0a
	regSysmod         byte = 0x0b
	regIntSource      byte = 0x0c
	regWhoAmI         byte = 0x0d
	regXyzDataCfg     byte = 0x0e
	regHpFilterCutoff byte = 0x0f
	regPlStatus       byte = 0x10
	regPlCfg          byte = 0x11
	regPlCount        byte = 0x12
	regPlBfZcomp      byte = 0x13
	regPlThs          byte = 0x14
	regAFfmtCfg       byte = 0x15
	regAFfmtSrc       byte = 0x16
	regAFfmtThs       byte = 0x17
	regAFfmtCount     byte = 0x18
	regTransientCfg   byte = 0x1d
	regTransientSrc   byte = 0x1e
	regTransientThs   byte = 0x1f
	regTransientCount byte = 0x20
	regPulseCfg       byte = 0x21
	regPulseSrc       byte = 0x22
	regPulseThsx      byte = 0x23
	regPulseThsy      byte = 0x24
	regPulseThsz      byte = 0x25
	regPulseTmlt      byte = 0x26
	regPulseLtcy      byte = 0x27
	regPulseWind      byte = 0x28
	regAslpCount      byte = 0x29
	regCtrlReg1       byte = 0x2a
	regCtrlReg2       byte = 0x2b
	regCtrlReg3       byte = 0x2c
	regCtrlReg4       byte = 0x2d
	regCtrlReg5       byte = 0x2e
	regOffX           byte = 0x2f
	regOffY           byte = 0x30
	regOffZ           byte = 0x31
	regMDrStatus      byte = 0x32
	regMOutXMsb       byte = 0x33
	regMOutXLsb       byte = 0x34
	regMOutYMsb       byte = 0x35
	regMOutYLsb       byte = 0x36
	regMOutZMsb       byte = 0x37
	regMOutZLsb       byte = 0x38
	regCmpXMsb        byte = 0x39
	regCmpXLsb        byte = 0x3a
	regCmpYMsb        byte = 0x3b
	regCmpYLsb        byte = 0x3c
	regCmpZMsb        byte = 0x3d
	regCmpZLsb        byte = 0x3e
	regMOffXMsb       byte = 0x3f
	regMOffXLsb       byte = 0x40
	regMOffYMsb       byte = 0x41
	regMOffYLsb       byte = 0x42
	regMOffZMsb       byte = 0x43
	regMOffZLsb       byte = 0x44
	regMaxXMsb        byte = 0x45
	regMaxXLsb        byte = 0x46
	regMaxYMsb        byte = 0x47
	regMaxYLsb        byte = 0x48
	regMaxZMsb        byte = 0x49
	regMaxZLsb        byte = 0x4a
	regMinXMsb        byte = 0x4b
	regMinXLsb        byte = 0x4c
	regMinYMsb        byte = 0x4d
	regMinYLsb        byte = 0x4e
	regMinZMsb        byte = 0x4f
	regMinZLsb        byte = 0x50
	regTemp           byte = 0x51
	regMThsCfg        byte = 0x52
	regMThsSrc        byte = 0x53
	regMThsXMsb       byte = 0x54
	regMThsXLsb       byte = 0x55
	regMThsYMsb       byte = 0x56
	regMThsYLsb       byte = 0x57
	regMThsZMsb       byte = 0x58
	regMThsZLsb       byte = 0x59
	regMThsCount      byte = 0x5a
	regMCtrlReg1      byte = 0x5b
	regMCtrlReg2      byte = 0x5c
	regMCtrlReg3      byte = 0x5d
	regMIntSrc        byte = 0x5e
	regAVecmCfg       byte = 0x5f
	regAVecmThsMsb    byte = 0x60
	regAVecmThsLsb    byte = 0x61
	regAVecmCnt       byte = 0x62
	regAVecmInitxMsb  byte = 0x63
	regAVecmInitxLsb  byte = 0x64
	regAVecmInityMsb  byte = 0x65
	regAVecmInityLsb  byte = 0x66
	regAVecmInitzMsb  byte = 0x67
	regAVecmInitzLsb  byte = 0x68
	regMVecmCfg       byte = 0x69
	regMVecmThsMsb    byte = 0x6a
	regMVecmThsLsb    byte = 0x6b
	regMVecmCnt       byte = 0x6c
	regMVecmInitxMsb  byte = 0x6d
	regMVecmInitxLsb  byte = 0x6e
	regMVecmInityMsb  byte = 0x6f
	regMVecmInityLsb  byte = 0x70
	regMVecmInitzMsb  byte = 0x71
	regMVecmInitzLsb  byte = 0x72
	regAFfmtThsXMsb   byte = 0x73
	regAFfmtThsXLsb   byte = 0x74
	regAFfmtThsYMsb   byte = 0x75
	regAFfmtThsYLsb   byte = 0x76
	regAFfmtThsZMsb   byte = 0x77
	regAFfmtThsZLsb   byte = 0x78
)

// Control values driven by the read sequences.
const (
	// CTRL_REG1 active bit, data rate and lnoise bits left at reset defaults
	ctrlReg1Active  byte = 0x01
	ctrlReg1Standby byte = 0x00
	// CTRL_REG4 int_en_drdy, CTRL_REG5 routes data ready to INT1
	ctrlReg4DrdyEnable byte = 0x01
	ctrlReg5DrdyToInt1 byte = 0x01
	// M_CTRL_REG1 one-shot trigger (m_ost) in hybrid mode (m_hms = 11)
	mCtrlReg1OneShotHybrid byte = 0b00100011
)

// whoAmIValue is the fixed WHO_AM_I content of the FXOS8700CQ.
const whoAmIValue byte = 0xc7

// DefaultAddr is the I2C address with both SA pins tied low.
const DefaultAddr byte = 0x1e
