// Package helpers holds small utilities shared by the table parsers.
package helpers

// Checksum returns the wrapping sum of every byte in data. Only the low
// eight bits are kept, matching the ACPI and SMBIOS checksum protocols.
func Checksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}

// ChecksumValid reports whether the bytes sum to zero modulo 256. Firmware
// tables store a checksum byte chosen so that a valid table sums to zero.
func ChecksumValid(data []byte) bool {
	return Checksum(data) == 0
}
