package risk

// Recommendations is the care guidance attached to an assessment. List order
// is not significant; every list is free of duplicates.
type Recommendations struct {
	Priority           string   `json:"priority"`
	GeneralAdvice      []string `json:"general_advice"`
	Dietary            []string `json:"dietary"`
	Lifestyle          []string `json:"lifestyle"`
	MedicalActions     []string `json:"medical_actions"`
	WarningSigns       []string `json:"warning_signs"`
	NextCheckupUrgency string   `json:"next_checkup_urgency"`
	EmergencyContact   string   `json:"emergency_contact"`
}

type baseAdvice struct {
	priority       string
	general        []string
	dietary        []string
	lifestyle      []string
	medicalActions []string
	warningSigns   []string
	nextCheckup    string
}

const emergencyContact = "Contact your healthcare provider immediately if you experience severe symptoms"

var adviceByLevel = map[RiskLevel]baseAdvice{
	Normal: {
		priority: "low",
		general: []string{
			"Congratulations! Your health parameters are within normal ranges.",
			"Continue your current healthy lifestyle to maintain optimal pregnancy health.",
			"Regular prenatal checkups will help monitor your continued well-being.",
		},
		dietary: []string{
			"Maintain a balanced diet with plenty of fruits and vegetables",
			"Continue taking prenatal vitamins as prescribed",
			"Stay hydrated with 8-10 glasses of water daily",
			"Include calcium-rich foods for baby's bone development",
			"Consume adequate protein for fetal growth",
		},
		lifestyle: []string{
			"Continue regular, moderate exercise as approved by your doctor",
			"Get 7-9 hours of quality sleep each night",
			"Practice stress management techniques",
			"Avoid alcohol, smoking, and recreational drugs",
			"Limit caffeine intake to less than 200mg daily",
		},
		medicalActions: []string{
			"Continue regular prenatal appointments",
			"Keep up with recommended prenatal screenings",
			"Discuss any concerns with your healthcare provider",
		},
		warningSigns: []string{
			"Severe headaches or vision changes",
			"Persistent nausea and vomiting",
			"Unusual vaginal bleeding or discharge",
			"Severe abdominal pain",
			"Decreased fetal movement (after 20 weeks)",
		},
		nextCheckup: "Continue with your regular prenatal visit schedule",
	},
	Medium: {
		priority: "medium",
		general: []string{
			"Your health parameters indicate medium risk that requires attention.",
			"With proper management and monitoring, you can have a healthy pregnancy.",
			"Follow the recommendations below and maintain close contact with your healthcare team.",
		},
		dietary: []string{
			"Follow a structured meal plan to manage health parameters",
			"Increase intake of foods rich in specific nutrients based on your needs",
			"Consider working with a registered dietitian",
			"Monitor portion sizes and meal timing",
			"Limit processed foods and added sugars",
		},
		lifestyle: []string{
			"Increase monitoring of your health parameters at home",
			"Engage in approved physical activity to improve health markers",
			"Prioritize stress reduction and adequate sleep",
			"Consider prenatal yoga or meditation classes",
			"Maintain a health diary to track symptoms and improvements",
		},
		medicalActions: []string{
			"Schedule more frequent prenatal visits",
			"Discuss additional monitoring or testing with your doctor",
			"Consider consultation with maternal-fetal medicine specialist",
			"Follow prescribed medication regimens carefully",
			"Monitor specific health parameters as directed",
		},
		warningSigns: []string{
			"Worsening of current symptoms",
			"New onset of severe headaches",
			"Rapid weight gain or severe swelling",
			"Chest pain or difficulty breathing",
			"Any signs that concern you - trust your instincts",
		},
		nextCheckup: "Schedule follow-up within 1-2 weeks or as directed by your healthcare provider",
	},
	High: {
		priority: "high",
		general: []string{
			"Your health parameters indicate high risk requiring immediate medical attention.",
			"Please contact your healthcare provider as soon as possible.",
			"High-risk pregnancies can still result in healthy outcomes with proper medical care.",
		},
		dietary: []string{
			"Follow a medically supervised nutrition plan",
			"Work closely with a registered dietitian specializing in high-risk pregnancies",
			"Strictly monitor and control specific dietary factors",
			"Consider therapeutic dietary modifications",
			"Track all food intake and symptoms",
		},
		lifestyle: []string{
			"Implement daily monitoring of vital health parameters",
			"Follow a modified activity plan as prescribed by your doctor",
			"Prioritize complete rest and stress reduction",
			"Consider bed rest if recommended by healthcare provider",
			"Arrange for additional support at home",
		},
		medicalActions: []string{
			"Contact your healthcare provider immediately",
			"Schedule urgent prenatal appointment",
			"Consider hospitalization for monitoring if recommended",
			"Follow all prescribed medications and treatments strictly",
			"Prepare for possible early delivery planning",
		},
		warningSigns: []string{
			"Severe headaches with vision changes",
			"Upper abdominal pain",
			"Difficulty breathing or chest pain",
			"Severe swelling of face, hands, or feet",
			"Decreased or absent fetal movement",
			"Vaginal bleeding",
			"Severe nausea and vomiting",
		},
		nextCheckup: "URGENT: Contact your healthcare provider today or go to the emergency room if experiencing severe symptoms",
	},
}

var actionsByCondition = map[Condition][]string{
	GestationalDiabetes: {
		"Monitor blood glucose levels regularly",
		"Follow a diabetic diet plan",
		"Engage in regular, moderate exercise",
		"Consider insulin therapy if recommended by doctor",
	},
	Preeclampsia: {
		"Monitor blood pressure daily",
		"Reduce sodium intake significantly",
		"Rest frequently and avoid stress",
		"Seek immediate medical attention for severe symptoms",
	},
	Anemia: {
		"Increase iron-rich foods in diet",
		"Take iron supplements as prescribed",
		"Include vitamin C to enhance iron absorption",
		"Regular blood tests to monitor hemoglobin",
	},
	Hypertension: {
		"Monitor blood pressure regularly",
		"Limit sodium and caffeine intake",
		"Practice stress reduction techniques",
		"Maintain healthy weight gain during pregnancy",
	},
	PretermLaborRisk: {
		"Learn the signs of preterm labor and report regular contractions before 37 weeks",
		"Ask your doctor about cervical length screening",
		"Avoid strenuous activity and heavy lifting",
		"Stay well hydrated",
	},
	FetalGrowthRestriction: {
		"Schedule serial growth ultrasounds as advised",
		"Track daily fetal movement counts",
		"Ensure adequate calorie and protein intake",
		"Discuss Doppler monitoring with your doctor",
	},
	PlacentalIssues: {
		"Report any vaginal bleeding immediately",
		"Avoid intercourse and strenuous activity until cleared by your doctor",
		"Attend all scheduled placental assessment scans",
		"Plan delivery location with your care team",
	},
}

// Compose builds guidance from the final risk level, the surfaced conditions
// and the raw readings.
func Compose(level RiskLevel, detected []DetectedCondition, p HealthParameters) Recommendations {
	base, ok := adviceByLevel[level]
	if !ok {
		base = adviceByLevel[Medium]
	}

	dietary := append([]string(nil), base.dietary...)
	lifestyle := append([]string(nil), base.lifestyle...)

	if p.SystolicBP > 140 || p.DiastolicBP > 90 {
		dietary = append(dietary,
			"Reduce sodium intake to less than 2300mg daily",
			"Increase potassium-rich foods (bananas, spinach, avocados)",
		)
		lifestyle = append(lifestyle,
			"Practice stress reduction techniques (meditation, deep breathing)",
			"Monitor blood pressure daily at the same time",
		)
	}
	if p.BloodSugar > 125 {
		dietary = append(dietary,
			"Choose complex carbohydrates over simple sugars",
			"Eat smaller, more frequent meals to stabilize blood sugar",
			"Include protein with each meal",
		)
		lifestyle = append(lifestyle,
			"Take short walks after meals",
			"Monitor blood glucose as recommended by your doctor",
		)
	}
	if p.Hemoglobin < 11 {
		dietary = append(dietary,
			"Increase iron-rich foods (lean meats, beans, spinach)",
			"Combine iron-rich foods with vitamin C sources",
			"Consider iron supplements as prescribed",
		)
		lifestyle = append(lifestyle,
			"Avoid tea and coffee with iron-rich meals",
			"Get adequate rest to support blood production",
		)
	}
	if p.BodyWeight > 80 {
		dietary = append(dietary,
			"Focus on nutrient-dense, lower-calorie foods",
			"Control portion sizes while meeting nutritional needs",
		)
		lifestyle = append(lifestyle,
			"Engage in regular, safe physical activity",
			"Track weight gain according to pregnancy guidelines",
		)
	}

	actions := append([]string(nil), base.medicalActions...)
	for _, c := range detected {
		actions = append(actions, actionsByCondition[c.Name]...)
	}

	return Recommendations{
		Priority:           base.priority,
		GeneralAdvice:      dedupe(base.general),
		Dietary:            dedupe(dietary),
		Lifestyle:          dedupe(lifestyle),
		MedicalActions:     dedupe(actions),
		WarningSigns:       dedupe(base.warningSigns),
		NextCheckupUrgency: base.nextCheckup,
		EmergencyContact:   emergencyContact,
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

type EmergencyGuidelines struct {
	WhenToCallImmediately []string          `json:"when_to_call_immediately"`
	EmergencyNumbers      map[string]string `json:"emergency_numbers"`
	WhatToTellStaff       []string          `json:"what_to_tell_medical_staff"`
}

// Emergency returns the static escalation guidance shown alongside every
// assessment screen.
func Emergency() EmergencyGuidelines {
	return EmergencyGuidelines{
		WhenToCallImmediately: []string{
			"Severe headache with vision changes or upper abdominal pain",
			"Heavy vaginal bleeding",
			"Severe abdominal or pelvic pain",
			"Difficulty breathing or chest pain",
			"Signs of preterm labor (regular contractions before 37 weeks)",
			"Sudden decrease or absence of fetal movement",
			"Severe nausea and vomiting preventing food/fluid intake",
			"High fever (over 101°F/38.3°C)",
			"Severe swelling of face, hands, or feet with headache",
		},
		EmergencyNumbers: map[string]string{
			"your_doctor": "Contact your healthcare provider's emergency line",
			"hospital":    "Go to your designated delivery hospital",
			"emergency":   "Call emergency services (911) for life-threatening situations",
		},
		WhatToTellStaff: []string{
			"Your current gestational week",
			"Your specific symptoms and when they started",
			"Your current medications and medical conditions",
			"Your recent health parameter readings",
			"Any recent changes in your condition",
		},
	}
}
