// Package ts102221 describes the UICC of ETSI TS 102 221: its file system, the status words
// it answers with and the content of the files this tool knows how to read.
package ts102221

import (
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
)

// ProfileName identifies the profile built by Profile.
const ProfileName = "UICC (ETSI TS 102 221)"

// AIDUSIM is the registered application provider identifier and application code of a USIM
// (TS 101 220 annex E), without the country or provider specific extension.
var AIDUSIM = []byte{0xA0, 0x00, 0x00, 0x00, 0x87, 0x10, 0x02}

// FileSystem returns the UICC file catalog rooted at the MF.
func FileSystem() sim.FileSpec {
	return sim.MF(
		sim.EFLinearFixed(0x2F00, "EF.DIR", 0, "Application directory", decodeDir, encodeDir).WithSFI(0x1E),
		sim.EFTransparent(0x2F05, "EF.PL", 0, "Preferred languages", decodePL, encodeElements).WithSFI(0x05),
		sim.EFLinearFixedN(0x2F06, "EF.ARR", 0, "Access rule reference").WithSFI(0x06),
		sim.EFTransparentN(0x2F08, "EF.UMPC", sim.FlagOptional, "UICC maximum power consumption").WithSFI(0x08),
		sim.EFTransparent(0x2FE2, "EF.ICCID", 0, "ICC identification", decodeICCID, encodeElements).WithSFI(0x02),

		sim.DF(0x7F10, "DF.TELECOM", "Telecom",
			sim.EFLinearFixedN(0x6F06, "EF.ARR", 0, "Access rule reference"),
			sim.DF(0x5F50, "DF.GRAPHICS", "Graphics",
				sim.EFLinearFixedN(0x4F20, "EF.IMG", 0, "Image"),
			),
		),

		sim.ADF(AIDUSIM, "ADF.USIM", "USIM application",
			sim.EFTransparent(0x6F07, "EF.IMSI", 0, "IMSI", decodeIMSI, encodeElements).WithSFI(0x07),
			sim.EFTransparentN(0x6FAD, "EF.AD", 0, "Administrative data").WithSFI(0x03),
			sim.EFTransparent(0x6F46, "EF.SPN", sim.FlagOptional, "Service provider name", decodeSPN, encodeElements),
			sim.EFTransparentN(0x6F38, "EF.UST", 0, "USIM service table").WithSFI(0x04),
			sim.EFTransparentN(0x6F7E, "EF.LOCI", 0, "Location information").WithSFI(0x0B),
		),
	)
}

// SWTable is the status word table of the profile: TS 102 221 codes first, then the
// interindustry ones of ISO/IEC 7816-4 for anything the former does not list.
func SWTable() iso7816.StatusWordTable {
	return iso7816.Concat(StatusWords, iso7816.ISO7816StatusWords)
}

// Profile builds the UICC profile.
func Profile() (*sim.Profile, error) {
	tree, err := sim.BuildTree(FileSystem())
	if err != nil {
		return nil, err
	}
	return sim.NewProfile(ProfileName, tree, SWTable())
}
