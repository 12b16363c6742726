package attgatt

// CharacteristicProps is an 8-bit bitset of GATT characteristic
// properties, per the Bluetooth Core spec's Characteristic Properties
// bit field.
type CharacteristicProps uint8

// Characteristic property bits. Do not reorder; they match the spec's
// on-the-wire bit positions.
const (
	PropBroadcast            CharacteristicProps = 0x01
	PropRead                 CharacteristicProps = 0x02
	PropWriteWithoutResponse CharacteristicProps = 0x04
	PropWrite                CharacteristicProps = 0x08
	PropNotify               CharacteristicProps = 0x10
	PropIndicate             CharacteristicProps = 0x20
	PropAuthenticatedWrite   CharacteristicProps = 0x40
	PropExtended             CharacteristicProps = 0x80
)

// Has reports whether all bits of other are set in p.
func (p CharacteristicProps) Has(other CharacteristicProps) bool {
	return p&other == other
}

// Any reports whether any bit of other is set in p.
func (p CharacteristicProps) Any(other CharacteristicProps) bool {
	return p&other != 0
}

// cccNotifyBit and cccIndicateBit are the bit positions within a 2-byte
// CCCD value, per the Client Characteristic Configuration descriptor spec.
const (
	cccNotifyBit   = 0x01
	cccIndicateBit = 0x02
)

// genericComputerAppearance is the default Appearance characteristic
// value (0x0080, "Generic Computer") exposed by the built-in Generic
// Access service.
var genericComputerAppearance = []byte{0x80, 0x00}
