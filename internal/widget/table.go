package widget

// Table names the survey table and the columns the widgets read. All names
// come from validated configuration and are written into SQL verbatim.
type Table struct {
	Name     string
	Remark   string
	Country  string
	Region   string
	Activity string
	Program  string
	Date     string
}

// DefaultTable matches the normalized classroom survey export.
func DefaultTable() Table {
	return Table{
		Name:     "prod.classroom_surveys_normalized",
		Remark:   "remarks_qualitative",
		Country:  "country",
		Region:   "region",
		Activity: "forms_verbose_consolidated",
		Program:  "program",
		Date:     "observation_date",
	}
}
