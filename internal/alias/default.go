package alias

import "sync"

// defaultEntries is the hand-curated alias table for Indian restaurant menus
// dictated in English. Variants are the spellings and mishearings observed
// from browser speech recognition with an en-IN locale.
//
// Variants containing number-words are written in their normalised digit
// form ("7 up"), since transcripts are normalised before lookup.
var defaultEntries = map[string][]string{
	// Staples.
	"rice":    {"rise", "rize", "raice", "rais"},
	"chole":   {"choley", "chhole", "sholay", "sholey", "chana", "chana masala"},
	"dal":     {"daal", "dahl", "dall"},
	"idli":    {"idly", "idlee", "idlly"},
	"dosa":    {"dosha", "dhosa"},
	"samosa":  {"samose", "samosas"},
	"roti":    {"rotti", "roty", "rooti"},
	"chapati": {"chapathi", "chapatti", "chappati"},
	"sabji":   {"sabzi", "sabjee"},
	"paneer":  {"panir", "paneeer"},
	"biryani": {"biriyani", "biriani", "briani"},
	"curd":    {"dahi", "yogurt"},
	"butter":  {"buttar"},
	"naan":    {"nan", "naaan"},
	"thali":   {"thaali"},
	"soup":    {"soop"},
	"salad":   {},
	"papad":   {"papadum"},
	"pickle":  {"achaar", "achar"},
	"vada":    {"wada", "vadaa"},
	"poha":    {"pohaa"},
	"upma":    {"upmaa"},
	"paratha": {"parantha", "parota", "parotta"},
	"puri":    {"poori", "poodi"},
	"bhaji":   {"bhajji", "bhajee"},
	"pav":     {"pau", "pow"},
	"misal":   {"missal"},
	"usal":    {},
	"sambar":  {"sambhar", "sambaar"},
	"chutney": {"chatni", "chutni"},

	// Sweets.
	"gulab":     {"gulaab"},
	"jamun":     {"jamoon", "jammun"},
	"rasgulla":  {"rasgula", "rasgoola"},
	"rasmalai":  {"rasmalay"},
	"jalebi":    {"jaleebi"},
	"ice cream": {"icecream", "ice-cream", "ice", "cream"},
	"halwa":     {"halva", "haluaa"},
	"kheer":     {"khir", "kheerr"},
	"payasam":   {"paysam", "payasum"},
	"rabri":     {"rabdi", "rabree"},
	"shrikhand": {"shreekhand"},
	"modak":     {"modhak"},
	"ladoo":     {"laddu", "laddoo"},
	"barfi":     {"burfi", "barfee"},
	"falooda":   {"faluda"},
	"kulfi":     {"kulfee"},

	// Fast food.
	"sandwich":    {"sandwitch"},
	"burger":      {"burgar"},
	"pizza":       {"piza", "pitsa"},
	"fries":       {"fry", "frize"},
	"pasta":       {},
	"maggi":       {"maggie"},
	"omelette":    {"omlet", "omlette"},
	"egg":         {"eggs"},
	"spring roll": {"springroll", "spring rolls"},
	"manchurian":  {"manchuriun"},
	"momos":       {"momo"},
	"chowmein":    {"chow mein", "chowmin"},
	"cutlet":      {"katlet"},

	// Proteins and diet markers.
	"chicken": {"chiken", "chikn"},
	"mutton":  {"matton"},
	"fish":    {"fissh"},
	"prawn":   {"prawns"},
	"shrimp":  {"shrimps"},
	"crab":    {"krab"},
	"veg":     {"vegetable", "vegetarian"},
	"non veg": {"nonveg", "non-veg", "non vegetarian"},

	// Drinks.
	"chai":         {"tea", "chaay", "chay"},
	"coffee":       {"cofee", "kofi"},
	"lassi":        {"lasi", "lassie"},
	"juice":        {"juce", "jus"},
	"shake":        {"sheikh", "shak"},
	"milk":         {"milkk"},
	"water":        {"watter", "vater"},
	"soda":         {"sodha"},
	"coke":         {"kok", "coca", "coca cola"},
	"pepsi":        {"pepsie"},
	"thums up":     {"thumbs up", "thumsup"},
	"sprite":       {"spright"},
	"fanta":        {"fenta"},
	"mirinda":      {"mirrinda"},
	"dew":          {},
	"mountain dew": {"mountain", "mountain due"},
	"appy":         {"appie"},
	"maaza":        {"maja", "maza"},
	"slice":        {"slyce"},
	"limca":        {"limka"},
	"sting":        {"stink"},
	"red bull":     {"redbull"},
	"monster":      {"monstor"},
	"7up":          {"7 up", "sevenup"},

	// Compound dishes. Longer keys win over their parts because the resolver
	// scans longer word windows first.
	"chicken biryani":      {"chiken biryani", "chicken biriyani", "chiken biriyani", "chicken briani"},
	"veg biryani":          {"vegetable biryani", "veg biriyani"},
	"mutton biryani":       {"matton biryani", "mutton biriyani"},
	"butter chicken":       {"buttar chicken", "butter chiken"},
	"paneer tikka":         {"panir tikka", "paneer tika"},
	"paneer butter masala": {"panir butter masala", "paneer makhani"},
	"masala dosa":          {"masala dosha", "masala dhosa"},
	"gulab jamun":          {"gulaab jamun", "gulab jamoon", "gulab jammun"},
	"pav bhaji":            {"pau bhaji", "pav bhajji", "pow bhaji"},
	"chole bhature":        {"chole bhatura", "choley bhature", "chhole bhature"},
	"dal makhani":          {"daal makhani", "dal makhni"},
	"jeera rice":           {"jira rice", "jeera rise"},
	"butter naan":          {"butter nan", "buttar naan"},
	"garlic naan":          {"garlic nan", "garlik naan"},
	"masala chai":          {"masala tea", "masala chay"},
	"cold coffee":          {"cold cofee", "cold kofi"},
	"mango lassi":          {"mango lasi", "mango lassie"},
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the built-in alias table. It is built on first use and the
// same immutable instance is returned afterwards.
func Default() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = Build(defaultEntries)
	})
	return defaultTable
}
