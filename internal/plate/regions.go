package plate

import (
	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// Region is a vehicle registration region and the coordinates of its
// administrative center.
type Region struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Coordinates geo.Coordinates `json:"coordinates"`
}

type regionEntry struct {
	name     string
	lat, lon float64
	codes    []string
}

// regionEntries lists every subject with its primary 2-digit code followed by
// any additional codes issued once the primary series ran out.
var regionEntries = []regionEntry{
	{"Republic of Adygea", 44.6098, 40.1006, []string{"01"}},
	{"Republic of Bashkortostan", 54.7388, 55.9721, []string{"02", "102", "702"}},
	{"Republic of Buryatia", 51.8335, 107.5841, []string{"03"}},
	{"Altai Republic", 51.9581, 85.9603, []string{"04"}},
	{"Republic of Dagestan", 42.9849, 47.5047, []string{"05"}},
	{"Republic of Ingushetia", 43.1666, 44.8046, []string{"06"}},
	{"Kabardino-Balkar Republic", 43.4853, 43.6071, []string{"07"}},
	{"Republic of Kalmykia", 46.3078, 44.2558, []string{"08"}},
	{"Karachay-Cherkess Republic", 44.2233, 42.0578, []string{"09"}},
	{"Republic of Karelia", 61.7849, 34.3469, []string{"10"}},
	{"Komi Republic", 61.6688, 50.8364, []string{"11"}},
	{"Mari El Republic", 56.6344, 47.8999, []string{"12"}},
	{"Republic of Mordovia", 54.1838, 45.1749, []string{"13", "113"}},
	{"Sakha Republic", 62.0355, 129.6755, []string{"14"}},
	{"Republic of North Ossetia-Alania", 43.0367, 44.6678, []string{"15"}},
	{"Republic of Tatarstan", 55.7887, 49.1221, []string{"16", "116", "716"}},
	{"Tuva Republic", 51.7191, 94.4378, []string{"17"}},
	{"Udmurt Republic", 56.8526, 53.2045, []string{"18"}},
	{"Republic of Khakassia", 53.7156, 91.4292, []string{"19"}},
	{"Chechen Republic", 43.3180, 45.6982, []string{"20", "95"}},
	{"Chuvash Republic", 56.1439, 47.2489, []string{"21", "121"}},
	{"Altai Krai", 53.3481, 83.7798, []string{"22"}},
	{"Krasnodar Krai", 45.0355, 38.9753, []string{"23", "93", "123", "193"}},
	{"Krasnoyarsk Krai", 56.0153, 92.8932, []string{"24", "84", "88", "124"}},
	{"Primorsky Krai", 43.1155, 131.8855, []string{"25", "125"}},
	{"Stavropol Krai", 45.0448, 41.9691, []string{"26", "126"}},
	{"Khabarovsk Krai", 48.4827, 135.0838, []string{"27"}},
	{"Amur Oblast", 50.2907, 127.5272, []string{"28"}},
	{"Arkhangelsk Oblast", 64.5393, 40.5187, []string{"29"}},
	{"Astrakhan Oblast", 46.3479, 48.0336, []string{"30"}},
	{"Belgorod Oblast", 50.5997, 36.5983, []string{"31"}},
	{"Bryansk Oblast", 53.2521, 34.3717, []string{"32"}},
	{"Vladimir Oblast", 56.1291, 40.4066, []string{"33"}},
	{"Volgograd Oblast", 48.7080, 44.5133, []string{"34", "134"}},
	{"Vologda Oblast", 59.2181, 39.8886, []string{"35"}},
	{"Voronezh Oblast", 51.6720, 39.1843, []string{"36", "136"}},
	{"Ivanovo Oblast", 57.0004, 40.9739, []string{"37"}},
	{"Irkutsk Oblast", 52.2870, 104.3050, []string{"38", "85", "138"}},
	{"Kaliningrad Oblast", 54.7104, 20.4522, []string{"39", "91"}},
	{"Kaluga Oblast", 54.5293, 36.2754, []string{"40"}},
	{"Kamchatka Krai", 53.0370, 158.6559, []string{"41"}},
	{"Kemerovo Oblast", 55.3547, 86.0873, []string{"42", "142"}},
	{"Kirov Oblast", 58.6036, 49.6680, []string{"43"}},
	{"Kostroma Oblast", 57.7665, 40.9269, []string{"44"}},
	{"Kurgan Oblast", 55.4410, 65.3411, []string{"45"}},
	{"Kursk Oblast", 51.7304, 36.1926, []string{"46"}},
	{"Leningrad Oblast", 59.5650, 30.1281, []string{"47", "147"}},
	{"Lipetsk Oblast", 52.6031, 39.5708, []string{"48"}},
	{"Magadan Oblast", 59.5612, 150.8301, []string{"49"}},
	{"Moscow Oblast", 55.8204, 37.3302, []string{"50", "90", "150", "190", "750", "790"}},
	{"Murmansk Oblast", 68.9585, 33.0827, []string{"51"}},
	{"Nizhny Novgorod Oblast", 56.2965, 43.9361, []string{"52", "152"}},
	{"Novgorod Oblast", 58.5213, 31.2755, []string{"53"}},
	{"Novosibirsk Oblast", 55.0084, 82.9357, []string{"54", "154"}},
	{"Omsk Oblast", 54.9885, 73.3242, []string{"55"}},
	{"Orenburg Oblast", 51.7682, 55.0970, []string{"56", "156"}},
	{"Oryol Oblast", 52.9703, 36.0635, []string{"57"}},
	{"Penza Oblast", 53.1959, 45.0183, []string{"58"}},
	{"Perm Krai", 58.0105, 56.2502, []string{"59", "81", "159"}},
	{"Pskov Oblast", 57.8194, 28.3318, []string{"60"}},
	{"Rostov Oblast", 47.2357, 39.7015, []string{"61", "161", "761"}},
	{"Ryazan Oblast", 54.6269, 39.6916, []string{"62"}},
	{"Samara Oblast", 53.1959, 50.1002, []string{"63", "163", "763"}},
	{"Saratov Oblast", 51.5331, 46.0342, []string{"64", "164"}},
	{"Sakhalin Oblast", 46.9591, 142.7380, []string{"65"}},
	{"Sverdlovsk Oblast", 56.8389, 60.6057, []string{"66", "96", "196"}},
	{"Smolensk Oblast", 54.7818, 32.0401, []string{"67"}},
	{"Tambov Oblast", 52.7212, 41.4523, []string{"68"}},
	{"Tver Oblast", 56.8587, 35.9176, []string{"69"}},
	{"Tomsk Oblast", 56.4846, 84.9476, []string{"70"}},
	{"Tula Oblast", 54.1931, 37.6173, []string{"71"}},
	{"Tyumen Oblast", 57.1522, 65.5272, []string{"72"}},
	{"Ulyanovsk Oblast", 54.3142, 48.4031, []string{"73", "173"}},
	{"Chelyabinsk Oblast", 55.1644, 61.4368, []string{"74", "174", "774"}},
	{"Zabaykalsky Krai", 52.0317, 113.5009, []string{"75", "80"}},
	{"Yaroslavl Oblast", 57.6261, 39.8845, []string{"76"}},
	{"Moscow", 55.7558, 37.6173, []string{"77", "97", "99", "177", "197", "199", "777", "797", "799", "977"}},
	{"Saint Petersburg", 59.9343, 30.3351, []string{"78", "98", "178", "198"}},
	{"Jewish Autonomous Oblast", 48.7946, 132.9217, []string{"79"}},
	{"Nenets Autonomous Okrug", 67.6381, 53.0069, []string{"83"}},
	{"Khanty-Mansi Autonomous Okrug", 61.0042, 69.0019, []string{"86", "186"}},
	{"Chukotka Autonomous Okrug", 64.7337, 177.4968, []string{"87"}},
	{"Yamalo-Nenets Autonomous Okrug", 66.5300, 66.6019, []string{"89"}},
}

var regionsByCode = buildRegionIndex()

func buildRegionIndex() map[string]Region {
	m := make(map[string]Region)
	for _, e := range regionEntries {
		for _, code := range e.codes {
			m[code] = Region{
				Code:        code,
				Name:        e.name,
				Coordinates: geo.Coordinates{Lat: e.lat, Lon: e.lon},
			}
		}
	}
	return m
}

// LookupRegion returns the region for a 2- or 3-digit registration code.
func LookupRegion(code string) (Region, bool) {
	r, ok := regionsByCode[code]
	return r, ok
}
