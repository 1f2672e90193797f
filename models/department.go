package models

// Department is a municipal unit responsible for a set of report
// categories. The mapping is static; category is the routing key.
type Department struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Categories  []ReportCategory `json:"categories"`
}

var departments = []Department{
	{Name: "Roads", Description: "Road infrastructure and maintenance", Categories: []ReportCategory{Road}},
	{Name: "Water", Description: "Water supply and drainage", Categories: []ReportCategory{Water}},
	{Name: "Sanitation", Description: "Waste management and sanitation", Categories: []ReportCategory{Sanitation}},
	{Name: "Electricity", Description: "Power infrastructure and street lighting", Categories: []ReportCategory{Electricity}},
	{Name: "General", Description: "General municipal services", Categories: []ReportCategory{Other}},
}

// Departments returns every department in display order.
func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments)
	return out
}

// DepartmentByName looks a department up by its exact name.
func DepartmentByName(name string) (Department, bool) {
	for _, d := range departments {
		if d.Name == name {
			return d, true
		}
	}
	return Department{}, false
}

// DepartmentForCategory returns the department responsible for a category.
// Unknown categories land in General.
func DepartmentForCategory(category ReportCategory) Department {
	for _, d := range departments {
		for _, c := range d.Categories {
			if c == category {
				return d
			}
		}
	}
	general, _ := DepartmentByName("General")
	return general
}
