package airports

import "github.com/jesposito/walkabout/pkg/geo"

// fallbackAirports is the built-in table used when the catalog CSV is
// missing. It covers the airports Walkabout's default searches and
// destination types reference.
var fallbackAirports = []Airport{
	{Code: "AKL", Name: "Auckland Airport", City: "Auckland", Country: "New Zealand", Region: "Oceania", Coords: geo.Coordinates{Lat: -37.0082, Lon: 174.7917}},
	{Code: "WLG", Name: "Wellington Airport", City: "Wellington", Country: "New Zealand", Region: "Oceania", Coords: geo.Coordinates{Lat: -41.3272, Lon: 174.8053}},
	{Code: "CHC", Name: "Christchurch Airport", City: "Christchurch", Country: "New Zealand", Region: "Oceania", Coords: geo.Coordinates{Lat: -43.4894, Lon: 172.5322}},
	{Code: "ZQN", Name: "Queenstown Airport", City: "Queenstown", Country: "New Zealand", Region: "Oceania", Coords: geo.Coordinates{Lat: -45.0211, Lon: 168.7392}},
	{Code: "DUD", Name: "Dunedin Airport", City: "Dunedin", Country: "New Zealand", Region: "Oceania", Coords: geo.Coordinates{Lat: -45.9281, Lon: 170.1983}},
	{Code: "SYD", Name: "Sydney Kingsford Smith", City: "Sydney", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -33.9461, Lon: 151.1772}},
	{Code: "MEL", Name: "Melbourne Airport", City: "Melbourne", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -37.6733, Lon: 144.8433}},
	{Code: "BNE", Name: "Brisbane Airport", City: "Brisbane", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -27.3842, Lon: 153.1175}},
	{Code: "PER", Name: "Perth Airport", City: "Perth", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -31.9403, Lon: 115.9669}},
	{Code: "ADL", Name: "Adelaide Airport", City: "Adelaide", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -34.945, Lon: 138.5306}},
	{Code: "OOL", Name: "Gold Coast Airport", City: "Gold Coast", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -28.1644, Lon: 153.5047}},
	{Code: "CNS", Name: "Cairns Airport", City: "Cairns", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -16.8858, Lon: 145.755}},
	{Code: "CBR", Name: "Canberra Airport", City: "Canberra", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -35.3069, Lon: 149.195}},
	{Code: "HBA", Name: "Hobart Airport", City: "Hobart", Country: "Australia", Region: "Oceania", Coords: geo.Coordinates{Lat: -42.8361, Lon: 147.5103}},
	{Code: "NAN", Name: "Nadi International", City: "Nadi", Country: "Fiji", Region: "Oceania", Coords: geo.Coordinates{Lat: -17.7554, Lon: 177.4434}},
	{Code: "SUV", Name: "Nausori International", City: "Suva", Country: "Fiji", Region: "Oceania", Coords: geo.Coordinates{Lat: -18.0433, Lon: 178.5592}},
	{Code: "RAR", Name: "Rarotonga International", City: "Rarotonga", Country: "Cook Islands", Region: "Oceania", Coords: geo.Coordinates{Lat: -21.2027, Lon: -159.7958}},
	{Code: "APW", Name: "Faleolo International", City: "Apia", Country: "Samoa", Region: "Oceania", Coords: geo.Coordinates{Lat: -13.83, Lon: -172.0083}},
	{Code: "TBU", Name: "Fua'amotu International", City: "Nuku'alofa", Country: "Tonga", Region: "Oceania", Coords: geo.Coordinates{Lat: -21.2412, Lon: -175.1496}},
	{Code: "VLI", Name: "Bauerfield International", City: "Port Vila", Country: "Vanuatu", Region: "Oceania", Coords: geo.Coordinates{Lat: -17.6993, Lon: 168.3198}},
	{Code: "NOU", Name: "La Tontouta International", City: "Noumea", Country: "New Caledonia", Region: "Oceania", Coords: geo.Coordinates{Lat: -22.0146, Lon: 166.2129}},
	{Code: "PPT", Name: "Faa'a International", City: "Papeete", Country: "French Polynesia", Region: "Oceania", Coords: geo.Coordinates{Lat: -17.5537, Lon: -149.6072}},
	{Code: "NRT", Name: "Narita International", City: "Tokyo", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 35.7647, Lon: 140.3864}},
	{Code: "HND", Name: "Tokyo Haneda", City: "Tokyo", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 35.5533, Lon: 139.7811}},
	{Code: "KIX", Name: "Kansai International", City: "Osaka", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 34.4347, Lon: 135.2441}},
	{Code: "NGO", Name: "Chubu Centrair", City: "Nagoya", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 34.8584, Lon: 136.8049}},
	{Code: "FUK", Name: "Fukuoka Airport", City: "Fukuoka", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 33.5859, Lon: 130.4511}},
	{Code: "CTS", Name: "New Chitose Airport", City: "Sapporo", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 42.7752, Lon: 141.6923}},
	{Code: "OKA", Name: "Naha Airport", City: "Okinawa", Country: "Japan", Region: "Asia", Coords: geo.Coordinates{Lat: 26.1958, Lon: 127.6459}},
	{Code: "SIN", Name: "Singapore Changi", City: "Singapore", Country: "Singapore", Region: "Asia", Coords: geo.Coordinates{Lat: 1.3502, Lon: 103.9944}},
	{Code: "BKK", Name: "Suvarnabhumi Airport", City: "Bangkok", Country: "Thailand", Region: "Asia", Coords: geo.Coordinates{Lat: 13.69, Lon: 100.7501}},
	{Code: "HKT", Name: "Phuket International", City: "Phuket", Country: "Thailand", Region: "Asia", Coords: geo.Coordinates{Lat: 8.1132, Lon: 98.3169}},
	{Code: "KUL", Name: "Kuala Lumpur International", City: "Kuala Lumpur", Country: "Malaysia", Region: "Asia", Coords: geo.Coordinates{Lat: 2.7456, Lon: 101.7099}},
	{Code: "SGN", Name: "Tan Son Nhat", City: "Ho Chi Minh City", Country: "Vietnam", Region: "Asia", Coords: geo.Coordinates{Lat: 10.8188, Lon: 106.6519}},
	{Code: "HAN", Name: "Noi Bai International", City: "Hanoi", Country: "Vietnam", Region: "Asia", Coords: geo.Coordinates{Lat: 21.2212, Lon: 105.8072}},
	{Code: "DAD", Name: "Da Nang International", City: "Da Nang", Country: "Vietnam", Region: "Asia", Coords: geo.Coordinates{Lat: 16.0439, Lon: 108.1994}},
	{Code: "MNL", Name: "Ninoy Aquino International", City: "Manila", Country: "Philippines", Region: "Asia", Coords: geo.Coordinates{Lat: 14.5086, Lon: 121.0194}},
	{Code: "CEB", Name: "Mactan-Cebu International", City: "Cebu", Country: "Philippines", Region: "Asia", Coords: geo.Coordinates{Lat: 10.3075, Lon: 123.9789}},
	{Code: "DPS", Name: "Ngurah Rai International", City: "Denpasar", Country: "Indonesia", Region: "Asia", Coords: geo.Coordinates{Lat: -8.7482, Lon: 115.1672}},
	{Code: "HKG", Name: "Hong Kong International", City: "Hong Kong", Country: "Hong Kong", Region: "Asia", Coords: geo.Coordinates{Lat: 22.308, Lon: 113.9185}},
	{Code: "ICN", Name: "Incheon International", City: "Seoul", Country: "South Korea", Region: "Asia", Coords: geo.Coordinates{Lat: 37.4691, Lon: 126.4505}},
	{Code: "TPE", Name: "Taiwan Taoyuan", City: "Taipei", Country: "Taiwan", Region: "Asia", Coords: geo.Coordinates{Lat: 25.0777, Lon: 121.2328}},
	{Code: "MLE", Name: "Velana International", City: "Male", Country: "Maldives", Region: "Asia", Coords: geo.Coordinates{Lat: 4.1918, Lon: 73.5291}},
	{Code: "LAX", Name: "Los Angeles International", City: "Los Angeles", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 33.9425, Lon: -118.4081}},
	{Code: "SFO", Name: "San Francisco International", City: "San Francisco", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 37.6189, Lon: -122.375}},
	{Code: "SEA", Name: "Seattle-Tacoma International", City: "Seattle", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 47.449, Lon: -122.3093}},
	{Code: "PDX", Name: "Portland International", City: "Portland", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 45.5887, Lon: -122.5975}},
	{Code: "SAN", Name: "San Diego International", City: "San Diego", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 32.7336, Lon: -117.1897}},
	{Code: "LAS", Name: "Harry Reid International", City: "Las Vegas", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 36.08, Lon: -115.1522}},
	{Code: "JFK", Name: "John F. Kennedy International", City: "New York", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 40.6413, Lon: -73.7781}},
	{Code: "EWR", Name: "Newark Liberty International", City: "New York", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 40.6895, Lon: -74.1745}},
	{Code: "BOS", Name: "Boston Logan", City: "Boston", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 42.3656, Lon: -71.0096}},
	{Code: "MIA", Name: "Miami International", City: "Miami", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 25.7959, Lon: -80.287}},
	{Code: "HNL", Name: "Daniel K. Inouye International", City: "Honolulu", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 21.3187, Lon: -157.9224}},
	{Code: "OGG", Name: "Kahului Airport", City: "Maui", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 20.8986, Lon: -156.4305}},
	{Code: "LIH", Name: "Lihue Airport", City: "Kauai", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 21.976, Lon: -159.3389}},
	{Code: "KOA", Name: "Kona International", City: "Kailua-Kona", Country: "United States", Region: "North America", Coords: geo.Coordinates{Lat: 19.7388, Lon: -156.0456}},
	{Code: "YVR", Name: "Vancouver International", City: "Vancouver", Country: "Canada", Region: "North America", Coords: geo.Coordinates{Lat: 49.1947, Lon: -123.1792}},
	{Code: "LHR", Name: "London Heathrow", City: "London", Country: "United Kingdom", Region: "Europe", Coords: geo.Coordinates{Lat: 51.47, Lon: -0.4543}},
	{Code: "LGW", Name: "London Gatwick", City: "London", Country: "United Kingdom", Region: "Europe", Coords: geo.Coordinates{Lat: 51.1537, Lon: -0.1821}},
	{Code: "MAN", Name: "Manchester Airport", City: "Manchester", Country: "United Kingdom", Region: "Europe", Coords: geo.Coordinates{Lat: 53.3537, Lon: -2.275}},
	{Code: "EDI", Name: "Edinburgh Airport", City: "Edinburgh", Country: "United Kingdom", Region: "Europe", Coords: geo.Coordinates{Lat: 55.95, Lon: -3.3725}},
	{Code: "CDG", Name: "Paris Charles de Gaulle", City: "Paris", Country: "France", Region: "Europe", Coords: geo.Coordinates{Lat: 49.0097, Lon: 2.5479}},
	{Code: "AMS", Name: "Amsterdam Schiphol", City: "Amsterdam", Country: "Netherlands", Region: "Europe", Coords: geo.Coordinates{Lat: 52.3105, Lon: 4.7683}},
	{Code: "FRA", Name: "Frankfurt Airport", City: "Frankfurt", Country: "Germany", Region: "Europe", Coords: geo.Coordinates{Lat: 50.0379, Lon: 8.5622}},
	{Code: "FCO", Name: "Rome Fiumicino", City: "Rome", Country: "Italy", Region: "Europe", Coords: geo.Coordinates{Lat: 41.8003, Lon: 12.2389}},
	{Code: "BCN", Name: "Barcelona El Prat", City: "Barcelona", Country: "Spain", Region: "Europe", Coords: geo.Coordinates{Lat: 41.2974, Lon: 2.0833}},
	{Code: "MAD", Name: "Madrid Barajas", City: "Madrid", Country: "Spain", Region: "Europe", Coords: geo.Coordinates{Lat: 40.4983, Lon: -3.5676}},
	{Code: "DXB", Name: "Dubai International", City: "Dubai", Country: "United Arab Emirates", Region: "Middle East", Coords: geo.Coordinates{Lat: 25.2532, Lon: 55.3657}},
	{Code: "DOH", Name: "Hamad International", City: "Doha", Country: "Qatar", Region: "Middle East", Coords: geo.Coordinates{Lat: 25.2731, Lon: 51.6081}},
	{Code: "MRU", Name: "Sir Seewoosagur Ramgoolam", City: "Mauritius", Country: "Mauritius", Region: "Africa", Coords: geo.Coordinates{Lat: -20.4302, Lon: 57.6836}},
	{Code: "SCL", Name: "Arturo Merino Benitez", City: "Santiago", Country: "Chile", Region: "South America", Coords: geo.Coordinates{Lat: -33.393, Lon: -70.7858}},
}

// preferredCityCodes is the curated "primary airport per major city" map the
// RSS deal parser uses when a feed names a city rather than a code.
var preferredCityCodes = map[string]string{
	"auckland":     "AKL",
	"wellington":   "WLG",
	"christchurch": "CHC",
	"queenstown":   "ZQN",
	"sydney":       "SYD",
	"melbourne":    "MEL",
	"brisbane":     "BNE",
	"perth":        "PER",
	"tokyo":        "NRT",
	"osaka":        "KIX",
	"singapore":    "SIN",
	"bangkok":      "BKK",
	"london":       "LHR",
	"paris":        "CDG",
	"new york":     "JFK",
	"los angeles":  "LAX",
	"san francisco": "SFO",
	"honolulu":     "HNL",
	"nadi":         "NAN",
	"rarotonga":    "RAR",
	"hong kong":    "HKG",
	"seoul":        "ICN",
	"dubai":        "DXB",
	"vancouver":    "YVR",
	"santiago":     "SCL",
}
