package domain

import "time"

// Business plan section names.
const (
	SectionIdeation           = "ideation"
	SectionElevatorPitch      = "elevatorPitch"
	SectionExecutiveSummary   = "executiveSummary"
	SectionMarketAnalysis     = "marketAnalysis"
	SectionOperationsPlan     = "operationsPlan"
	SectionManagementTeam     = "managementTeam"
	SectionServiceDescription = "serviceDescription"
	SectionMarketingStrategy  = "marketingStrategy"
)

// Financial section names.
const (
	SectionRestaurantOperations = "restaurantOperations"
	SectionRevenue              = "revenue"
	SectionCOGS                 = "cogs"
	SectionOperatingExpenses    = "operatingExpenses"
	SectionStartupCosts         = "startupCosts"
	SectionFundingSources       = "fundingSources"
	SectionCapTable             = "capTable"
	SectionMenu                 = "menu"
)

const DefaultDraftName = "My Restaurant Plan"

var BusinessPlanSections = []string{
	SectionIdeation,
	SectionElevatorPitch,
	SectionExecutiveSummary,
	SectionMarketAnalysis,
	SectionOperationsPlan,
	SectionManagementTeam,
	SectionServiceDescription,
	SectionMarketingStrategy,
}

var FinancialSections = []string{
	SectionRestaurantOperations,
	SectionRevenue,
	SectionCOGS,
	SectionOperatingExpenses,
	SectionStartupCosts,
	SectionFundingSources,
	SectionCapTable,
	SectionMenu,
}

// IsBusinessPlanSection reports whether name is a known business plan section.
func IsBusinessPlanSection(name string) bool {
	return contains(BusinessPlanSections, name)
}

// IsFinancialSection reports whether name is a known financial section.
func IsFinancialSection(name string) bool {
	return contains(FinancialSections, name)
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// NewBusinessPlan returns the empty business plan template.
func NewBusinessPlan() BusinessPlan {
	return BusinessPlan{
		SectionIdeation: {
			"conceptName":         "",
			"cuisineType":         "",
			"targetMarket":        "",
			"inspiration":         "",
			"uniqueSellingPoints": []any{},
		},
		SectionElevatorPitch: {
			"hook":     "",
			"problem":  "",
			"solution": "",
			"pitch":    "",
		},
		SectionExecutiveSummary: {
			"businessName":     "",
			"businessConcept":  "",
			"missionStatement": "",
			"visionStatement":  "",
			"location":         "",
			"fundingRequest":   "",
			"keyObjectives":    []any{},
		},
		SectionMarketAnalysis: {
			"industryOverview":   "",
			"targetDemographics": "",
			"marketTrends":       "",
			"competitiveEdge":    "",
			"competitors":        []any{},
		},
		SectionOperationsPlan: {
			"hoursOfOperation": "",
			"staffingPlan":     "",
			"supplyChain":      "",
			"technology":       "",
			"equipment":        []any{},
		},
		SectionManagementTeam: {
			"organizationalStructure": "",
			"members":                 []any{},
			"advisors":                []any{},
		},
		SectionServiceDescription: {
			"menuConcept":      "",
			"serviceStyle":     "",
			"diningExperience": "",
			"specialFeatures":  []any{},
		},
		SectionMarketingStrategy: {
			"brandPositioning": "",
			"launchPlan":       "",
			"loyaltyProgram":   "",
			"budget":           "",
			"channels":         []any{},
		},
	}
}

// DefaultLaborRoster returns the starting staff roster used by every
// financial template.
func DefaultLaborRoster() []any {
	salaried := func(position string, count, salary float64) map[string]any {
		return map[string]any{
			"position":     position,
			"type":         "salary",
			"count":        count,
			"annualSalary": salary,
			"hourlyRate":   0.0,
			"hoursPerWeek": 0.0,
		}
	}
	hourly := func(position string, count, rate, hours float64) map[string]any {
		return map[string]any{
			"position":     position,
			"type":         "hourly",
			"count":        count,
			"annualSalary": 0.0,
			"hourlyRate":   rate,
			"hoursPerWeek": hours,
		}
	}
	return []any{
		salaried("General Manager", 1, 65000),
		salaried("Executive Chef", 1, 60000),
		salaried("Assistant Manager", 1, 45000),
		hourly("Sous Chef", 1, 22, 45),
		hourly("Line Cook", 4, 17, 40),
		hourly("Prep Cook", 2, 15, 30),
		hourly("Dishwasher", 2, 14, 35),
		hourly("Server", 6, 8, 30),
		hourly("Bartender", 2, 10, 30),
		hourly("Host", 2, 13, 25),
		hourly("Busser", 2, 11, 25),
	}
}

// DefaultPayrollTaxes returns employer payroll tax rates in percent.
func DefaultPayrollTaxes() map[string]any {
	return map[string]any{
		"socialSecurity":      6.2,
		"medicare":            1.45,
		"federalUnemployment": 0.6,
		"stateUnemployment":   2.7,
		"workersCompensation": 1.5,
	}
}

// NewFinancialData returns the empty financial model template.
func NewFinancialData() FinancialData {
	return FinancialData{
		SectionRestaurantOperations: {
			"restaurantType":  "",
			"seats":           60.0,
			"averageCheck":    35.0,
			"turnsPerDay":     1.5,
			"daysOpenPerWeek": 6.0,
			"weeksPerYear":    52.0,
		},
		SectionRevenue: {
			"foodSales":        0.0,
			"beverageSales":    0.0,
			"cateringSales":    0.0,
			"merchandiseSales": 0.0,
			"otherRevenue":     0.0,
			"lineItems":        []any{},
		},
		SectionCOGS: {
			"foodCostPercent":        30.0,
			"beverageCostPercent":    25.0,
			"cateringCostPercent":    30.0,
			"merchandiseCostPercent": 50.0,
		},
		SectionOperatingExpenses: {
			"rent":               0.0,
			"utilities":          0.0,
			"insurance":          0.0,
			"marketing":          0.0,
			"repairsMaintenance": 0.0,
			"technology":         0.0,
			"otherExpenses":      0.0,
			"laborRoster":        DefaultLaborRoster(),
			"payrollTaxes":       DefaultPayrollTaxes(),
			"lineItems":          []any{},
		},
		SectionStartupCosts: {
			"buildout":            0.0,
			"equipment":           0.0,
			"furniture":           0.0,
			"initialInventory":    0.0,
			"licensesPermits":     0.0,
			"preOpeningMarketing": 0.0,
			"workingCapital":      0.0,
			"contingency":         0.0,
		},
		SectionFundingSources: {
			"sources": []any{},
		},
		SectionCapTable: {
			"entries": []any{},
		},
		SectionMenu: {
			"categories": []any{"Appetizers", "Entrees", "Desserts", "Beverages"},
			"items":      []any{},
		},
	}
}

// NewDraft builds a draft from the default templates.
func NewDraft(id, name string, now time.Time) Draft {
	if name == "" {
		name = DefaultDraftName
	}
	return Draft{
		ID:            id,
		Name:          name,
		CreatedAt:     now,
		UpdatedAt:     now,
		BusinessPlan:  NewBusinessPlan(),
		FinancialData: NewFinancialData(),
		Vendors:       []Vendor{},
	}
}

// SampleDraft builds a filled-in example on top of the same templates.
func SampleDraft(id string, now time.Time) Draft {
	d := NewDraft(id, "Sample: Harbor Street Bistro", now)

	d.BusinessPlan[SectionExecutiveSummary]["businessName"] = "Harbor Street Bistro"
	d.BusinessPlan[SectionExecutiveSummary]["businessConcept"] = "Seasonal coastal cooking in a relaxed neighborhood room"
	d.BusinessPlan[SectionExecutiveSummary]["location"] = "Harbor Street, waterfront district"
	d.BusinessPlan[SectionIdeation]["cuisineType"] = "Modern seafood"
	d.BusinessPlan[SectionServiceDescription]["serviceStyle"] = "Full service"

	d.FinancialData[SectionRestaurantOperations]["restaurantType"] = "Casual fine dining"
	d.FinancialData[SectionRestaurantOperations]["seats"] = 72.0
	d.FinancialData[SectionRestaurantOperations]["averageCheck"] = 48.0
	d.FinancialData[SectionStartupCosts]["buildout"] = 180000.0
	d.FinancialData[SectionStartupCosts]["equipment"] = 95000.0
	d.FinancialData[SectionFundingSources]["sources"] = []any{
		map[string]any{"name": "Owner equity", "type": "equity", "amount": 150000.0},
		map[string]any{"name": "SBA 7(a) loan", "type": "debt", "amount": 250000.0},
	}

	d.Vendors = []Vendor{
		{ID: "vendor_sample_1", Name: "Dana Ortiz", Company: "Bayside Seafood Co.", Email: "orders@bayside.example", Category: "Seafood", Priority: "high"},
		{ID: "vendor_sample_2", Name: "Lee Park", Company: "Greenleaf Produce", Email: "lee@greenleaf.example", Category: "Produce", Priority: "medium"},
	}
	return d
}
