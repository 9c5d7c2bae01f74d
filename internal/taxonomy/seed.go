package taxonomy

// Seed returns the built-in registry used when no taxonomy file is
// configured.
func Seed() *Registry {
	return New([]Module{
		{
			ID:      "lap-appendectomy",
			Title:   "Laparoscopic Appendectomy",
			Context: "Laparoscopic appendectomy: patient preparation, port placement, dissection of the mesoappendix, securing the base, specimen retrieval and closure.",
			Topics: []TopicSpec{
				{ID: "prep", Name: "Patient preparation", Keywords: []string{"consent", "antibiotics", "supine", "catheter", "timeout"}, Required: true},
				{ID: "access", Name: "Port placement", Keywords: []string{"trocar", "port", "pneumoperitoneum", "umbilical", "insufflation"}, Required: true},
				{ID: "dissection", Name: "Mesoappendix dissection", Keywords: []string{"mesoappendix", "artery", "cautery", "dissect"}, Required: true},
				{ID: "base", Name: "Securing the base", Keywords: []string{"endoloop", "stapler", "ligate", "base"}, Required: true},
				{ID: "retrieval", Name: "Specimen retrieval", Keywords: []string{"bag", "specimen", "retrieve"}},
				{ID: "complications", Name: "Complications", Keywords: []string{"bleeding", "abscess", "perforation", "leak"}},
			},
		},
		{
			ID:      "central-line",
			Title:   "Central Venous Catheter Placement",
			Context: "Ultrasound-guided internal jugular central line placement using the Seldinger technique, including sterile setup, confirmation and complication management.",
			Topics: []TopicSpec{
				{ID: "sterile", Name: "Sterile technique", Keywords: []string{"sterile", "drape", "chlorhexidine", "gown", "gloves"}, Required: true},
				{ID: "ultrasound", Name: "Ultrasound guidance", Keywords: []string{"ultrasound", "probe", "compressible", "vein"}, Required: true},
				{ID: "seldinger", Name: "Seldinger technique", Keywords: []string{"needle", "guidewire", "dilator", "wire"}, Required: true},
				{ID: "confirmation", Name: "Placement confirmation", Keywords: []string{"x-ray", "radiograph", "aspirate", "flush"}, Required: true},
				{ID: "complications", Name: "Complications", Keywords: []string{"pneumothorax", "arterial", "infection", "embolism"}},
			},
		},
	})
}
