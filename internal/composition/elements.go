package composition

// Element holds the intrinsic elemental properties used for formula
// normalization, weight fractions, and composition featurization.
type Element struct {
	Symbol            string  `json:"symbol"`
	Number            int     `json:"number"`
	Mass              float64 `json:"mass"`
	Electronegativity float64 `json:"electronegativity"`
	Period            int     `json:"period"`
	Group             int     `json:"group"`
	CovalentRadius    float64 `json:"covalent_radius"`
	Mendeleev         int     `json:"mendeleev"`
}

// Lookup returns the element for symbol.
func Lookup(symbol string) (Element, bool) {
	e, ok := table[symbol]
	return e, ok
}

// Symbols returns every element symbol known to the package in atomic number order.
func Symbols() []string {
	out := make([]string, 0, len(table))
	for _, e := range ordered {
		out = append(out, e.Symbol)
	}
	return out
}

var table = func() map[string]Element {
	m := make(map[string]Element, len(ordered))
	for _, e := range ordered {
		m[e.Symbol] = e
	}
	return m
}()

// Pauling electronegativity, Cordero covalent radii (pm), Villars/Magpie
// Mendeleev numbers.
var ordered = []Element{
	{"H", 1, 1.008, 2.20, 1, 1, 31, 92},
	{"Li", 3, 6.94, 0.98, 2, 1, 128, 1},
	{"Be", 4, 9.012, 1.57, 2, 2, 96, 67},
	{"B", 5, 10.81, 2.04, 2, 13, 84, 72},
	{"C", 6, 12.011, 2.55, 2, 14, 76, 77},
	{"N", 7, 14.007, 3.04, 2, 15, 71, 82},
	{"O", 8, 15.999, 3.44, 2, 16, 66, 87},
	{"F", 9, 18.998, 3.98, 2, 17, 57, 93},
	{"Na", 11, 22.990, 0.93, 3, 1, 166, 2},
	{"Mg", 12, 24.305, 1.31, 3, 2, 141, 68},
	{"Al", 13, 26.982, 1.61, 3, 13, 121, 73},
	{"Si", 14, 28.085, 1.90, 3, 14, 111, 78},
	{"P", 15, 30.974, 2.19, 3, 15, 107, 83},
	{"S", 16, 32.06, 2.58, 3, 16, 105, 88},
	{"Cl", 17, 35.45, 3.16, 3, 17, 102, 94},
	{"K", 19, 39.098, 0.82, 4, 1, 203, 3},
	{"Ca", 20, 40.078, 1.00, 4, 2, 176, 7},
	{"Sc", 21, 44.956, 1.36, 4, 3, 170, 11},
	{"Ti", 22, 47.867, 1.54, 4, 4, 160, 43},
	{"V", 23, 50.942, 1.63, 4, 5, 153, 46},
	{"Cr", 24, 51.996, 1.66, 4, 6, 139, 49},
	{"Mn", 25, 54.938, 1.55, 4, 7, 139, 52},
	{"Fe", 26, 55.845, 1.83, 4, 8, 132, 55},
	{"Co", 27, 58.933, 1.88, 4, 9, 126, 58},
	{"Ni", 28, 58.693, 1.91, 4, 10, 124, 61},
	{"Cu", 29, 63.546, 1.90, 4, 11, 132, 64},
	{"Zn", 30, 65.38, 1.65, 4, 12, 122, 69},
	{"Ga", 31, 69.723, 1.81, 4, 13, 122, 74},
	{"Ge", 32, 72.630, 2.01, 4, 14, 120, 79},
	{"As", 33, 74.922, 2.18, 4, 15, 119, 84},
	{"Se", 34, 78.971, 2.55, 4, 16, 120, 89},
	{"Br", 35, 79.904, 2.96, 4, 17, 120, 95},
	{"Rb", 37, 85.468, 0.82, 5, 1, 220, 4},
	{"Sr", 38, 87.62, 0.95, 5, 2, 195, 8},
	{"Y", 39, 88.906, 1.22, 5, 3, 190, 12},
	{"Zr", 40, 91.224, 1.33, 5, 4, 175, 44},
	{"Nb", 41, 92.906, 1.60, 5, 5, 164, 47},
	{"Mo", 42, 95.95, 2.16, 5, 6, 154, 50},
	{"Ru", 44, 101.07, 2.20, 5, 8, 146, 56},
	{"Rh", 45, 102.91, 2.28, 5, 9, 142, 59},
	{"Pd", 46, 106.42, 2.20, 5, 10, 139, 62},
	{"Ag", 47, 107.87, 1.93, 5, 11, 145, 65},
	{"Cd", 48, 112.41, 1.69, 5, 12, 144, 70},
	{"In", 49, 114.82, 1.78, 5, 13, 142, 75},
	{"Sn", 50, 118.71, 1.96, 5, 14, 139, 80},
	{"Sb", 51, 121.76, 2.05, 5, 15, 139, 85},
	{"Te", 52, 127.60, 2.10, 5, 16, 138, 90},
	{"I", 53, 126.90, 2.66, 5, 17, 139, 96},
	{"Cs", 55, 132.91, 0.79, 6, 1, 244, 5},
	{"Ba", 56, 137.33, 0.89, 6, 2, 215, 9},
	{"La", 57, 138.91, 1.10, 6, 3, 207, 13},
	{"Hf", 72, 178.49, 1.30, 6, 4, 175, 45},
	{"Ta", 73, 180.95, 1.50, 6, 5, 170, 48},
	{"W", 74, 183.84, 2.36, 6, 6, 162, 51},
	{"Pt", 78, 195.08, 2.28, 6, 10, 136, 63},
	{"Au", 79, 196.97, 2.54, 6, 11, 136, 66},
	{"Hg", 80, 200.59, 2.00, 6, 12, 132, 71},
	{"Tl", 81, 204.38, 1.62, 6, 13, 145, 76},
	{"Pb", 82, 207.2, 2.33, 6, 14, 146, 81},
	{"Bi", 83, 208.98, 2.02, 6, 15, 148, 86},
}
