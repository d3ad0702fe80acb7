package engine

// Work-order taxonomy. Classification categories map into this smaller
// closed set used by the ticketing system.
const (
	WorkOrderCategoryMachinery = "machinery"
	WorkOrderCategoryPest      = "pest"
	WorkOrderCategoryInputs    = "inputs"
	WorkOrderCategoryOther     = "other"
)

// workOrderCategories maps classification categories to the work-order
// taxonomy. All stages that need the mapping read this one table.
var workOrderCategories = map[Category]string{
	CategoryMechanicalFailure:     WorkOrderCategoryMachinery,
	CategoryPhytosanitary:         WorkOrderCategoryPest,
	CategorySupplyStock:           WorkOrderCategoryInputs,
	CategoryWeather:               WorkOrderCategoryOther,
	CategoryITSystem:              WorkOrderCategoryOther,
	CategoryHR:                    WorkOrderCategoryOther,
	CategoryPreventiveMaintenance: WorkOrderCategoryMachinery,
	CategoryMachineOperation:      WorkOrderCategoryMachinery,
	CategoryOperationalQuestion:   WorkOrderCategoryOther,
	CategoryGreeting:              WorkOrderCategoryOther,
	CategoryOther:                 WorkOrderCategoryOther,
}

// WorkOrderCategoryFor maps a classification category into the work-order
// taxonomy, defaulting to "other".
func WorkOrderCategoryFor(c Category) string {
	if mapped, ok := workOrderCategories[c]; ok {
		return mapped
	}
	return WorkOrderCategoryOther
}

// specialists assigns a specialist type per classification category.
var specialists = map[Category]string{
	CategoryMechanicalFailure:     "Agricultural Machinery Mechanic",
	CategoryPhytosanitary:         "Agronomy Specialist",
	CategoryITSystem:              "IT Technician",
	CategoryPreventiveMaintenance: "Maintenance Technician",
	CategoryOther:                 "Field Supervisor",
}

// SpecialistFor returns the specialist type assigned to a category,
// defaulting to the field supervisor.
func SpecialistFor(c Category) string {
	if s, ok := specialists[c]; ok {
		return s
	}
	return "Field Supervisor"
}

// priorities maps issue severity to work-order priority.
var priorities = map[Severity]string{
	SeverityLow:    "low",
	SeverityMedium: "medium",
	SeverityHigh:   "high",
}

// PriorityFor returns the work-order priority for a severity, defaulting
// to medium.
func PriorityFor(s Severity) string {
	if p, ok := priorities[s]; ok {
		return p
	}
	return "medium"
}
