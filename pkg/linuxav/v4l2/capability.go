package v4l2

// Capability flags (from linux/videodev2.h).
const (
	CapVideoCapture       uint32 = 0x00000001
	CapVideoOutput        uint32 = 0x00000002
	CapVideoOverlay       uint32 = 0x00000004
	CapVBICapture         uint32 = 0x00000010
	CapVBIOutput          uint32 = 0x00000020
	CapSlicedVBICapture   uint32 = 0x00000040
	CapSlicedVBIOutput    uint32 = 0x00000080
	CapRDSCapture         uint32 = 0x00000100
	CapVideoOutputOverlay uint32 = 0x00000200
	CapHWFreqSeek         uint32 = 0x00000400
	CapRDSOutput          uint32 = 0x00000800
	CapVideoCaptureMPlane uint32 = 0x00001000
	CapVideoOutputMPlane  uint32 = 0x00002000
	CapVideoM2MMPlane     uint32 = 0x00004000
	CapVideoM2M           uint32 = 0x00008000
	CapTuner              uint32 = 0x00010000
	CapAudio              uint32 = 0x00020000
	CapRadio              uint32 = 0x00040000
	CapModulator          uint32 = 0x00080000
	CapSDRCapture         uint32 = 0x00100000
	CapExtPixFormat       uint32 = 0x00200000
	CapSDROutput          uint32 = 0x00400000
	CapReadWrite          uint32 = 0x01000000
	CapAsyncIO            uint32 = 0x02000000
	CapStreaming          uint32 = 0x04000000
	CapDeviceCaps         uint32 = 0x80000000
)

// CapabilityEntry names a single capability bit.
type CapabilityEntry struct {
	Name string
	Flag uint32
}

// capabilityTable is ordered for display: capture/output families first,
// then VBI/RDS, tuner family, and finally I/O methods.
var capabilityTable = []CapabilityEntry{
	{"V4L2_CAP_VIDEO_CAPTURE", CapVideoCapture},
	{"V4L2_CAP_VIDEO_CAPTURE_MPLANE", CapVideoCaptureMPlane},
	{"V4L2_CAP_VIDEO_OUTPUT", CapVideoOutput},
	{"V4L2_CAP_VIDEO_OUTPUT_MPLANE", CapVideoOutputMPlane},
	{"V4L2_CAP_VIDEO_M2M", CapVideoM2M},
	{"V4L2_CAP_VIDEO_M2M_MPLANE", CapVideoM2MMPlane},
	{"V4L2_CAP_VIDEO_OVERLAY", CapVideoOverlay},
	{"V4L2_CAP_VBI_CAPTURE", CapVBICapture},
	{"V4L2_CAP_VBI_OUTPUT", CapVBIOutput},
	{"V4L2_CAP_SLICED_VBI_CAPTURE", CapSlicedVBICapture},
	{"V4L2_CAP_SLICED_VBI_OUTPUT", CapSlicedVBIOutput},
	{"V4L2_CAP_RDS_CAPTURE", CapRDSCapture},
	{"V4L2_CAP_VIDEO_OUTPUT_OVERLAY", CapVideoOutputOverlay},
	{"V4L2_CAP_HW_FREQ_SEEK", CapHWFreqSeek},
	{"V4L2_CAP_RDS_OUTPUT", CapRDSOutput},
	{"V4L2_CAP_TUNER", CapTuner},
	{"V4L2_CAP_AUDIO", CapAudio},
	{"V4L2_CAP_RADIO", CapRadio},
	{"V4L2_CAP_MODULATOR", CapModulator},
	{"V4L2_CAP_SDR_CAPTURE", CapSDRCapture},
	{"V4L2_CAP_EXT_PIX_FORMAT", CapExtPixFormat},
	{"V4L2_CAP_SDR_OUTPUT", CapSDROutput},
	{"V4L2_CAP_READWRITE", CapReadWrite},
	{"V4L2_CAP_ASYNCIO", CapAsyncIO},
	{"V4L2_CAP_STREAMING", CapStreaming},
	{"V4L2_CAP_DEVICE_CAPS", CapDeviceCaps},
}

// CapabilityTable returns a copy of the named capability bits in display order.
func CapabilityTable() []CapabilityEntry {
	out := make([]CapabilityEntry, len(capabilityTable))
	copy(out, capabilityTable)
	return out
}

// CapabilityNames returns the names of the bits set in mask, in table order.
// Bits without a name are ignored.
func CapabilityNames(mask uint32) []string {
	var names []string
	for _, entry := range capabilityTable {
		if mask&entry.Flag != 0 {
			names = append(names, entry.Name)
		}
	}
	return names
}
