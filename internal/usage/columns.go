package usage

// columnIndex is the fixed 0-based cell mapping for usage data rows in the
// vendor export. The layout is positional, not header-driven; if the vendor
// format drifts, this table is the only place that needs revising.
type columnIndex struct {
	DeviceModel int
	DeviceName  int
	IPAddress   int

	Mono             int
	Color            int
	Blank            int
	Total            int
	AdobePDF         int
	Copy             int
	MSExcel          int
	MSPowerPoint     int
	MSWord           int
	OtherApplication int
	Print            int
	Simplex          int
	Duplex           int
}

var usageColumns = columnIndex{
	DeviceModel: 0,
	DeviceName:  1,
	IPAddress:   2,

	Mono:             7,
	Color:            8,
	Blank:            9,
	Total:            10,
	AdobePDF:         13,
	Copy:             14,
	MSExcel:          19,
	MSPowerPoint:     20,
	MSWord:           21,
	OtherApplication: 22,
	Print:            24,
	Simplex:          27,
	Duplex:           28,
}

// minDataCells is the cell-count threshold that distinguishes usage data rows
// from section chrome; rows must have more than this many cells.
const minDataCells = 10
