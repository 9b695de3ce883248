package models

// BusinessType — справочник видов деятельности компании.
type BusinessType string

const (
	BusinessRetail        BusinessType = "retail"
	BusinessServices      BusinessType = "services"
	BusinessManufacturing BusinessType = "manufacturing"
	BusinessIT            BusinessType = "it"
	BusinessOther         BusinessType = "other"
)

// Valid сообщает, входит ли значение в справочник.
func (b BusinessType) Valid() bool {
	switch b {
	case BusinessRetail, BusinessServices, BusinessManufacturing, BusinessIT, BusinessOther:
		return true
	default:
		return false
	}
}

// Region — справочник регионов присутствия компании.
type Region string

const (
	RegionCentral Region = "central"
	RegionNorth   Region = "north"
	RegionSouth   Region = "south"
	RegionEast    Region = "east"
	RegionWest    Region = "west"
)

// Valid сообщает, входит ли значение в справочник.
func (r Region) Valid() bool {
	switch r {
	case RegionCentral, RegionNorth, RegionSouth, RegionEast, RegionWest:
		return true
	default:
		return false
	}
}
