package generator

// Conditions is the catalogue patients draw their conditions from.
var Conditions = []string{
	"Type 2 Diabetes Mellitus",
	"Type 1 Diabetes Mellitus",
	"Prediabetes",
	"Diabetic Neuropathy",
	"Diabetic Retinopathy",
	"Hypertension",
	"Hyperlipidemia",
	"Obesity",
	"Coronary Artery Disease",
	"Chronic Kidney Disease",
	"Metabolic Syndrome",
	"Hypothyroidism",
	"Depression",
	"Asthma",
	"Osteoarthritis",
}

// DiabetesConditions are the primary conditions of diabetic patients.
var DiabetesConditions = []string{
	"Type 2 Diabetes Mellitus",
	"Type 1 Diabetes Mellitus",
	"Prediabetes",
}

// Medications is the catalogue patients draw their medications from.
var Medications = []string{
	"Metformin",
	"Insulin Glargine",
	"Insulin Lispro",
	"Glipizide",
	"Sitagliptin",
	"Empagliflozin",
	"Lisinopril",
	"Atorvastatin",
	"Aspirin",
	"Losartan",
	"Amlodipine",
	"Levothyroxine",
}

// Ranges of generated attributes; upper bounds are exclusive.
const (
	minAge           = 25
	maxAge           = 85
	minConditions    = 1
	maxConditions    = 6
	minMedications   = 2
	maxMedications   = 7
	defaultDiabetics = 0.8
)
