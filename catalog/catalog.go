// Package catalog holds the fixed category reference set covered by the daily sweep.
//
// The catalog is exactly 45 categories partitioned into 4 groups. It is immutable at
// runtime: every accessor returns a copy.
package catalog

import "sort"

// Expected sizes of the fixed catalog
const (
	CategoryCount = 45
	GroupCount    = 4
)

// Group is a top-level grouping of categories
type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Category is one entry of the fixed catalog
type Category struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
}

var groups = []Group{
	{ID: 1, Name: "Industrial Supplies", SortOrder: 1},
	{ID: 2, Name: "Holiday Decorations", SortOrder: 2},
	{ID: 3, Name: "Home & Living", SortOrder: 3},
	{ID: 4, Name: "Digital Accessories & Small Appliances", SortOrder: 4},
}

var categories = []Category{
	// Industrial Supplies (12)
	{1, 1, "Hardware Tools", "industrial-hardware"},
	{2, 1, "Safety & Security", "safety-security"},
	{3, 1, "Electrical Equipment", "electrical-equipment"},
	{4, 1, "Measuring Instruments", "measuring-instruments"},
	{5, 1, "Welding Equipment", "welding-equipment"},
	{6, 1, "Pneumatic Tools", "pneumatic-tools"},
	{7, 1, "Hydraulic Equipment", "hydraulic-equipment"},
	{8, 1, "Industrial Lighting", "industrial-lighting"},
	{9, 1, "Packaging Materials", "packaging-materials"},
	{10, 1, "Cleaning Equipment", "cleaning-equipment"},
	{11, 1, "Material Handling", "material-handling"},
	{12, 1, "Industrial Tape", "industrial-tape"},

	// Holiday Decorations (10)
	{13, 2, "Christmas Decorations", "christmas-decorations"},
	{14, 2, "Halloween Decorations", "halloween-decorations"},
	{15, 2, "Easter Decorations", "easter-decorations"},
	{16, 2, "Valentine's Decorations", "valentines-decorations"},
	{17, 2, "Party Supplies", "party-supplies"},
	{18, 2, "Wedding Supplies", "wedding-supplies"},
	{19, 2, "Birthday Decorations", "birthday-decorations"},
	{20, 2, "Holiday Lights", "holiday-lights"},
	{21, 2, "Balloon Decorations", "balloon-decorations"},
	{22, 2, "Gift Wrapping", "gift-wrapping"},

	// Home & Living (13)
	{23, 3, "Kitchen Supplies", "kitchen-supplies"},
	{24, 3, "Bathroom Supplies", "bathroom-supplies"},
	{25, 3, "Storage & Organization", "storage-organization"},
	{26, 3, "Home Textiles", "home-textiles"},
	{27, 3, "Home Decor", "home-decor"},
	{28, 3, "Cleaning Supplies", "cleaning-supplies"},
	{29, 3, "Pet Supplies", "pet-supplies"},
	{30, 3, "Garden Supplies", "garden-supplies"},
	{31, 3, "Outdoor Supplies", "outdoor-supplies"},
	{32, 3, "Automotive Supplies", "automotive-supplies"},
	{33, 3, "Office Supplies", "office-supplies"},
	{34, 3, "Sports & Fitness", "sports-fitness"},
	{35, 3, "Baby Supplies", "baby-supplies"},

	// Digital Accessories & Small Appliances (10)
	{36, 4, "Phone Accessories", "phone-accessories"},
	{37, 4, "Computer Accessories", "computer-accessories"},
	{38, 4, "Audio Equipment", "audio-equipment"},
	{39, 4, "Wearable Devices", "wearable-devices"},
	{40, 4, "Charging Equipment", "charging-equipment"},
	{41, 4, "Cables & Connectors", "cables-connectors"},
	{42, 4, "Small Appliances", "small-appliances"},
	{43, 4, "Personal Care Appliances", "personal-care-appliances"},
	{44, 4, "Kitchen Appliances", "kitchen-appliances"},
	{45, 4, "Smart Home", "smart-home"},
}

var byID = func() map[int64]Category {
	m := make(map[int64]Category, len(categories))
	for _, c := range categories {
		m[c.ID] = c
	}
	return m
}()

// All returns every category ordered by ID
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// IDs returns every category ID in ascending order
func IDs() []int64 {
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// Groups returns the category groups ordered by SortOrder
func Groups() []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// ByID looks up a category
func ByID(id int64) (Category, bool) {
	c, ok := byID[id]
	return c, ok
}

// ByGroup returns the categories of a group ordered by ID
func ByGroup(groupID int64) []Category {
	var out []Category
	for _, c := range categories {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether id belongs to the fixed catalog
func Contains(id int64) bool {
	_, ok := byID[id]
	return ok
}
