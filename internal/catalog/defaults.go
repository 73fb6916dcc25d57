package catalog

// DefaultVenueType is assigned to dynamically minted activity types
const DefaultVenueType = "community_space"

// DefaultMinAttendees is the promotion threshold for types that set none
const DefaultMinAttendees = 3

var defaultActivityTypes = []ActivitySeed{
	{Name: "jazz_jam", DisplayName: "Jazz Jam", VenueType: "music_studio", MinAttendees: 3},
	{Name: "classical_ensemble", DisplayName: "Classical Ensemble", VenueType: "music_venue", MinAttendees: 3},
	{Name: "pickup_basketball", DisplayName: "Pickup Basketball", VenueType: "outdoor_court", MinAttendees: 6},
	{Name: "pickup_volleyball", DisplayName: "Pickup Volleyball", VenueType: "beach", MinAttendees: 6},
	{Name: "group_hike", DisplayName: "Group Hike", VenueType: "trailhead", MinAttendees: 3},
	{Name: "running_club", DisplayName: "Running Club", VenueType: "outdoor_park", MinAttendees: 3},
	{Name: "climbing_session", DisplayName: "Climbing Session", VenueType: "climbing_gym", MinAttendees: 2},
	{Name: "surf_session", DisplayName: "Surf Session", VenueType: "beach", MinAttendees: 2},
	{Name: "skate_session", DisplayName: "Skate Session", VenueType: "skatepark", MinAttendees: 2},
	{Name: "yoga_session", DisplayName: "Yoga Session", VenueType: "studio", MinAttendees: 3},
	{Name: "dance_social", DisplayName: "Dance Social", VenueType: "dance_studio", MinAttendees: 4},
	{Name: "dinner_party", DisplayName: "Dinner Party", VenueType: "private_home", MinAttendees: 4},
	{Name: "wine_tasting", DisplayName: "Wine Tasting", VenueType: "bar_lounge", MinAttendees: 4},
	{Name: "homebrew_club", DisplayName: "Homebrew Club", VenueType: "community_kitchen", MinAttendees: 3},
	{Name: "book_club", DisplayName: "Book Club", VenueType: "bookstore", MinAttendees: 4},
	{Name: "writing_workshop", DisplayName: "Writing Circle", VenueType: "cafe", MinAttendees: 3},
	{Name: "trivia_night", DisplayName: "Trivia Night", VenueType: "bar_lounge", MinAttendees: 6},
	{Name: "board_game_night", DisplayName: "Board Game Night", VenueType: "community_space", MinAttendees: 4},
	{Name: "pottery_workshop", DisplayName: "Pottery Workshop", VenueType: "art_studio", MinAttendees: 3},
	{Name: "painting_session", DisplayName: "Painting Session", VenueType: "art_studio", MinAttendees: 3},
	{Name: "photo_walk", DisplayName: "Photo Walk", VenueType: "outdoor_neighborhood", MinAttendees: 2},
	{Name: "design_critique", DisplayName: "Design Critique", VenueType: "gallery", MinAttendees: 3},
	{Name: "hackathon", DisplayName: "Mini Hackathon", VenueType: "coworking_space", MinAttendees: 3},
	{Name: "maker_workshop", DisplayName: "Maker Workshop", VenueType: "makerspace", MinAttendees: 2},
	{Name: "startup_mixer", DisplayName: "Founder Roundtable", VenueType: "rooftop_lounge", MinAttendees: 4},
	{Name: "garden_meetup", DisplayName: "Garden Meetup", VenueType: "community_garden", MinAttendees: 3},
}

var defaultVenues = map[string]VenueSuggestion{
	"music_studio":         {Desc: "indoor acoustic spot in the Mission", Lat: 37.7525, Lng: -122.4147, Name: "The Jam Spot", Address: "3030 20th St, San Francisco, CA"},
	"outdoor_court":        {Desc: "outdoor court at Potrero Hill", Lat: 37.7573, Lng: -122.3985, Name: "Potrero Hill Rec Center", Address: "801 Arkansas St, San Francisco, CA"},
	"trailhead":            {Desc: "trailhead near Lands End", Lat: 37.7879, Lng: -122.5053, Name: "Lands End Trail", Address: "680 Point Lobos Ave, San Francisco, CA"},
	"outdoor_park":         {Desc: "Dolores Park meetup spot", Lat: 37.7596, Lng: -122.4269, Name: "Dolores Park", Address: "19th & Dolores St, San Francisco, CA"},
	"climbing_gym":         {Desc: "climbing gym in the Mission", Lat: 37.7603, Lng: -122.413, Name: "Mission Cliffs", Address: "2295 Harrison St, San Francisco, CA"},
	"private_home":         {Desc: "cozy home kitchen in Hayes Valley", Lat: 37.7764, Lng: -122.4244, Name: "Hayes Valley Home", Address: "Hayes Valley, San Francisco, CA"},
	"cafe":                 {Desc: "quiet cafe in North Beach", Lat: 37.7976, Lng: -122.4065, Name: "City Lights Books area", Address: "261 Columbus Ave, San Francisco, CA"},
	"bar_lounge":           {Desc: "lounge at Fort Mason", Lat: 37.8066, Lng: -122.4316, Name: "The Interval", Address: "2 Marina Blvd, San Francisco, CA"},
	"art_studio":           {Desc: "art studio in Hayes Valley", Lat: 37.7764, Lng: -122.4244, Name: "Hayes Valley Art Gallery", Address: "432 Octavia St, San Francisco, CA"},
	"gallery":              {Desc: "gallery space in Hayes Valley", Lat: 37.7764, Lng: -122.4244, Name: "Hayes Valley Art Gallery", Address: "432 Octavia St, San Francisco, CA"},
	"studio":               {Desc: "yoga studio in the Mission", Lat: 37.7627, Lng: -122.4189, Name: "Mission Yoga", Address: "2390 Mission St, San Francisco, CA"},
	"outdoor_neighborhood": {Desc: "scenic streets of North Beach", Lat: 37.7976, Lng: -122.4065, Name: "North Beach", Address: "North Beach, San Francisco, CA"},
	"coworking_space":      {Desc: "coworking space in SOMA", Lat: 37.7713, Lng: -122.3909, Name: "Spark Social SF", Address: "601 Mission Bay Blvd, San Francisco, CA"},
	"makerspace":           {Desc: "makerspace in the Mission", Lat: 37.7627, Lng: -122.4189, Name: "Noisebridge", Address: "2169 Mission St, San Francisco, CA"},
	"bookstore":            {Desc: "bookstore in North Beach", Lat: 37.7976, Lng: -122.4065, Name: "City Lights Books", Address: "261 Columbus Ave, San Francisco, CA"},
	"music_venue":          {Desc: "community music center in the Mission", Lat: 37.7584, Lng: -122.418, Name: "SF Community Music Center", Address: "544 Capp St, San Francisco, CA"},
	"dance_studio":         {Desc: "dance studio in the Mission", Lat: 37.7584, Lng: -122.418, Name: "Mission Dance Studio", Address: "3316 24th St, San Francisco, CA"},
	"beach":                {Desc: "Ocean Beach at sunset", Lat: 37.7594, Lng: -122.5107, Name: "Ocean Beach", Address: "Great Hwy, San Francisco, CA"},
	"skatepark":            {Desc: "skatepark under the freeway", Lat: 37.7756, Lng: -122.4141, Name: "SoMa Skatepark", Address: "520 De Haro St, San Francisco, CA"},
	"community_garden":     {Desc: "community garden in the Sunset", Lat: 37.7604, Lng: -122.4936, Name: "Sunset Community Garden", Address: "Sunset Blvd, San Francisco, CA"},
	"food_hall":            {Desc: "food hall in Mission Bay", Lat: 37.7713, Lng: -122.3909, Name: "Spark Social SF", Address: "601 Mission Bay Blvd, San Francisco, CA"},
	"restaurant":           {Desc: "restaurant in the Castro", Lat: 37.7609, Lng: -122.435, Name: "Castro Restaurant", Address: "Castro St, San Francisco, CA"},
	"rooftop_lounge":       {Desc: "rooftop lounge in SOMA", Lat: 37.7756, Lng: -122.4141, Name: "NEMA Rooftop", Address: "8 10th St, San Francisco, CA"},
	"rec_center":           {Desc: "rec center on Potrero Hill", Lat: 37.7573, Lng: -122.3985, Name: "Potrero Hill Rec Center", Address: "801 Arkansas St, San Francisco, CA"},
	"community_kitchen":    {Desc: "community kitchen in SOMA", Lat: 37.7708, Lng: -122.4151, Name: "Rainbow Grocery area", Address: "1745 Folsom St, San Francisco, CA"},
	"community_space":      {Desc: "community space in the Haight", Lat: 37.7692, Lng: -122.4518, Name: "The Bindery", Address: "1727 Haight St, San Francisco, CA"},
	"outdoor_field":        {Desc: "Golden Gate Park fields", Lat: 37.7694, Lng: -122.4936, Name: "GGP Polo Fields", Address: "Golden Gate Park, San Francisco, CA"},
}

// keys are lower-cased canonical interests
var defaultInterests = map[string]string{
	"jazz piano":       "jazz_jam",
	"jazz drums":       "jazz_jam",
	"jazz":             "jazz_jam",
	"music production": "jazz_jam",
	"basketball":       "pickup_basketball",
	"hiking":           "group_hike",
	"running":          "running_club",
	"rock climbing":    "climbing_session",
	"climbing":         "climbing_session",
	"bouldering":       "climbing_session",
	"dinner party":     "dinner_party",
	"cooking":          "dinner_party",
	"book club":        "book_club",
	"reading":          "book_club",
	"wine tasting":     "wine_tasting",
	"wine":             "wine_tasting",
	"pottery":          "pottery_workshop",
	"ceramics":         "pottery_workshop",
	"painting":         "painting_session",
	"art":              "painting_session",
	"yoga":             "yoga_session",
	"meditation":       "yoga_session",
	"photography":      "photo_walk",
	"hackathon":        "hackathon",
	"coding":           "hackathon",
	"programming":      "hackathon",
	"machine learning": "hackathon",
	"3d printing":      "maker_workshop",
	"woodworking":      "maker_workshop",
	"making":           "maker_workshop",
	"board games":      "board_game_night",
	"video games":      "board_game_night",
	"gaming":           "board_game_night",
	"trivia":           "trivia_night",
	"writing":          "writing_workshop",
	"creative writing": "writing_workshop",
	"classical music":  "classical_ensemble",
	"violin":           "classical_ensemble",
	"cello":            "classical_ensemble",
	"salsa":            "dance_social",
	"dancing":          "dance_social",
	"volleyball":       "pickup_volleyball",
	"surfing":          "surf_session",
	"skateboarding":    "skate_session",
	"startup":          "startup_mixer",
	"networking":       "startup_mixer",
	"gardening":        "garden_meetup",
	"brewing":          "homebrew_club",
	"design":           "design_critique",
	"tech":             "hackathon",
	"business":         "startup_mixer",
	"sports":           "pickup_basketball",
	"science":          "hackathon",
	"pop culture":      "trivia_night",
	"philosophy":       "book_club",
}
