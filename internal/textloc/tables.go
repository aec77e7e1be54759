package textloc

import (
	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// Place is a named reference point in a lookup table.
type Place struct {
	Name        string          `json:"name"`
	Coordinates geo.Coordinates `json:"coordinates"`
}

func place(name string, lat, lon float64) Place {
	return Place{Name: name, Coordinates: geo.Coordinates{Lat: lat, Lon: lon}}
}

// phoneAreaCodes maps Russian 3-digit telephone area codes to the city they
// serve. Mobile (9xx) codes carry no location and are deliberately absent.
var phoneAreaCodes = map[string]Place{
	"495": place("Moscow", 55.7558, 37.6173),
	"499": place("Moscow", 55.7558, 37.6173),
	"496": place("Moscow Oblast", 55.8204, 37.3302),
	"498": place("Moscow Oblast", 55.8204, 37.3302),
	"812": place("Saint Petersburg", 59.9343, 30.3351),
	"813": place("Leningrad Oblast", 59.5650, 30.1281),
	"811": place("Pskov", 57.8194, 28.3318),
	"814": place("Petrozavodsk", 61.7849, 34.3469),
	"815": place("Murmansk", 68.9585, 33.0827),
	"816": place("Veliky Novgorod", 58.5213, 31.2755),
	"817": place("Vologda", 59.2181, 39.8886),
	"818": place("Arkhangelsk", 64.5393, 40.5187),
	"821": place("Syktyvkar", 61.6688, 50.8364),
	"831": place("Nizhny Novgorod", 56.2965, 43.9361),
	"833": place("Kirov", 58.6036, 49.6680),
	"834": place("Saransk", 54.1838, 45.1749),
	"835": place("Cheboksary", 56.1439, 47.2489),
	"836": place("Yoshkar-Ola", 56.6344, 47.8999),
	"841": place("Penza", 53.1959, 45.0183),
	"842": place("Ulyanovsk", 54.3142, 48.4031),
	"843": place("Kazan", 55.7887, 49.1221),
	"844": place("Volgograd", 48.7080, 44.5133),
	"845": place("Saratov", 51.5331, 46.0342),
	"846": place("Samara", 53.1959, 50.1002),
	"848": place("Tolyatti", 53.5303, 49.3461),
	"851": place("Astrakhan", 46.3479, 48.0336),
	"855": place("Naberezhnye Chelny", 55.7436, 52.3958),
	"861": place("Krasnodar", 45.0355, 38.9753),
	"862": place("Sochi", 43.5855, 39.7231),
	"863": place("Rostov-on-Don", 47.2357, 39.7015),
	"865": place("Stavropol", 45.0448, 41.9691),
	"866": place("Nalchik", 43.4853, 43.6071),
	"867": place("Vladikavkaz", 43.0367, 44.6678),
	"871": place("Grozny", 43.3180, 45.6982),
	"872": place("Makhachkala", 42.9849, 47.5047),
	"877": place("Maykop", 44.6098, 40.1006),
	"878": place("Cherkessk", 44.2233, 42.0578),
	"879": place("Mineralnye Vody", 44.2087, 43.1353),
	"471": place("Kursk", 51.7304, 36.1926),
	"472": place("Belgorod", 50.5997, 36.5983),
	"473": place("Voronezh", 51.6720, 39.1843),
	"474": place("Lipetsk", 52.6031, 39.5708),
	"475": place("Tambov", 52.7212, 41.4523),
	"481": place("Smolensk", 54.7818, 32.0401),
	"482": place("Tver", 56.8587, 35.9176),
	"483": place("Bryansk", 53.2521, 34.3717),
	"484": place("Kaluga", 54.5293, 36.2754),
	"485": place("Yaroslavl", 57.6261, 39.8845),
	"486": place("Oryol", 52.9703, 36.0635),
	"487": place("Tula", 54.1931, 37.6173),
	"491": place("Ryazan", 54.6269, 39.6916),
	"492": place("Vladimir", 56.1291, 40.4066),
	"493": place("Ivanovo", 57.0004, 40.9739),
	"494": place("Kostroma", 57.7665, 40.9269),
	"401": place("Kaliningrad", 54.7104, 20.4522),
	"341": place("Izhevsk", 56.8526, 53.2045),
	"342": place("Perm", 58.0105, 56.2502),
	"343": place("Yekaterinburg", 56.8389, 60.6057),
	"345": place("Tyumen", 57.1522, 65.5272),
	"346": place("Surgut", 61.2540, 73.3962),
	"347": place("Ufa", 54.7388, 55.9721),
	"349": place("Salekhard", 66.5300, 66.6019),
	"351": place("Chelyabinsk", 55.1644, 61.4368),
	"352": place("Kurgan", 55.4410, 65.3411),
	"353": place("Orenburg", 51.7682, 55.0970),
	"381": place("Omsk", 54.9885, 73.3242),
	"382": place("Tomsk", 56.4846, 84.9476),
	"383": place("Novosibirsk", 55.0084, 82.9357),
	"384": place("Kemerovo", 55.3547, 86.0873),
	"385": place("Barnaul", 53.3481, 83.7798),
	"388": place("Gorno-Altaysk", 51.9581, 85.9603),
	"390": place("Abakan", 53.7156, 91.4292),
	"391": place("Krasnoyarsk", 56.0153, 92.8932),
	"394": place("Kyzyl", 51.7191, 94.4378),
	"395": place("Irkutsk", 52.2870, 104.3050),
	"301": place("Ulan-Ude", 51.8335, 107.5841),
	"302": place("Chita", 52.0317, 113.5009),
	"411": place("Yakutsk", 62.0355, 129.6755),
	"413": place("Magadan", 59.5612, 150.8301),
	"415": place("Petropavlovsk-Kamchatsky", 53.0370, 158.6559),
	"416": place("Blagoveshchensk", 50.2907, 127.5272),
	"421": place("Khabarovsk", 48.4827, 135.0838),
	"423": place("Vladivostok", 43.1155, 131.8855),
	"424": place("Yuzhno-Sakhalinsk", 46.9591, 142.7380),
	"426": place("Birobidzhan", 48.7946, 132.9217),
}

// postalRule maps an inclusive range of 6-digit postal codes to one area.
type postalRule struct {
	from, to int
	area     Place
}

// postalRules are checked in order before the exact table.
var postalRules = []postalRule{
	{101000, 129999, place("Moscow", 55.7558, 37.6173)},
	{190000, 199999, place("Saint Petersburg", 59.9343, 30.3351)},
	{344000, 347999, place("Rostov-on-Don", 47.2357, 39.7015)},
	{350000, 354999, place("Krasnodar", 45.0355, 38.9753)},
	{394000, 397999, place("Voronezh", 51.6720, 39.1843)},
	{400000, 404999, place("Volgograd", 48.7080, 44.5133)},
	{420000, 423999, place("Kazan", 55.7887, 49.1221)},
	{443000, 446999, place("Samara", 53.1959, 50.1002)},
	{450000, 453999, place("Ufa", 54.7388, 55.9721)},
	{454000, 457999, place("Chelyabinsk", 55.1644, 61.4368)},
	{603000, 607999, place("Nizhny Novgorod", 56.2965, 43.9361)},
	{614000, 619999, place("Perm", 58.0105, 56.2502)},
	{620000, 624999, place("Yekaterinburg", 56.8389, 60.6057)},
	{630000, 633999, place("Novosibirsk", 55.0084, 82.9357)},
	{644000, 646999, place("Omsk", 54.9885, 73.3242)},
	{660000, 663999, place("Krasnoyarsk", 56.0153, 92.8932)},
}

// postalExact maps individual postal codes, mostly Moscow Oblast towns, that
// no prefix rule covers.
var postalExact = map[string]Place{
	"140000": place("Lyubertsy", 55.6783, 37.8939),
	"140180": place("Zhukovsky", 55.5972, 38.1200),
	"140400": place("Kolomna", 55.0794, 38.7783),
	"141000": place("Mytishchi", 55.9116, 37.7308),
	"141070": place("Korolyov", 55.9142, 37.8256),
	"141200": place("Pushkino", 56.0104, 37.8471),
	"141300": place("Sergiev Posad", 56.3150, 38.1357),
	"141400": place("Khimki", 55.8970, 37.4297),
	"141700": place("Dolgoprudny", 55.9386, 37.5019),
	"141980": place("Dubna", 56.7320, 37.1669),
	"142000": place("Domodedovo", 55.4365, 37.7681),
	"142100": place("Podolsk", 55.4311, 37.5446),
	"142400": place("Noginsk", 55.8686, 38.4438),
	"142700": place("Vidnoye", 55.5510, 37.7096),
	"143000": place("Odintsovo", 55.6780, 37.2777),
	"143400": place("Krasnogorsk", 55.8204, 37.3302),
	"143900": place("Balashikha", 55.7963, 37.9382),
	"144000": place("Elektrostal", 55.7896, 38.4467),
}

// LookupAreaCode returns the city served by a 3-digit telephone area code.
func LookupAreaCode(code string) (Place, bool) {
	p, ok := phoneAreaCodes[code]
	return p, ok
}

// LookupPostalCode resolves a 6-digit postal code. Prefix-range rules are
// tried first, then the exact table. rule reports which one matched:
// "prefix" or "exact".
func LookupPostalCode(code string) (p Place, rule string, ok bool) {
	if len(code) != 6 {
		return Place{}, "", false
	}
	n := 0
	for _, r := range code {
		if r < '0' || r > '9' {
			return Place{}, "", false
		}
		n = n*10 + int(r-'0')
	}
	for _, r := range postalRules {
		if n >= r.from && n <= r.to {
			return r.area, "prefix", true
		}
	}
	if p, ok := postalExact[code]; ok {
		return p, "exact", true
	}
	return Place{}, "", false
}
