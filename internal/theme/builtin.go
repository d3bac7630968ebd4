package theme

const ramadanFrame = "Frames/Ramadan/1.png"

// Builtin returns the Ramadan catalog shipped with the kiosk.
func Builtin() []Theme {
	order := []string{
		"lantern_maker",
		"ramadan_drummer",
		"kunafa_maker",
		"egyptian_lady",
		"cannon_officer",
		"desert_wanderer",
		"snap_a_memory",
	}

	out := make([]Theme, 0, len(order))
	for _, id := range order {
		if t, ok := builtinThemes[id]; ok {
			t.ID = id
			out = append(out, cloneTheme(t))
		}
	}
	return out
}

// DefaultCatalog builds a catalog from Builtin. The built-in table is
// validated by tests so the error is only reachable after a bad edit.
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(Builtin())
}

var builtinThemes = map[string]Theme{
	"lantern_maker": {
		Name:         "Ramadan Lantern Maker",
		Description:  "The traditional craftsman who creates Ramadan lanterns",
		PreviewImage: "Ramadan/Lantern-Maker-Preview.png",
		Scenes: []SceneVariant{{
			Description: "A warm, atmospheric workshop filled with colorful handmade Ramadan lanterns (Fanous). The subject stands among hanging lanterns of various sizes, with warm golden light filtering through stained glass. Traditional tools and brass decorations visible in the background. Authentic Egyptian craftsmanship atmosphere.",
			MaleClothing: []string{
				"Traditional Egyptian craftsman: a comfortable cotton Galabeya in earthy tones (beige or light brown), with a simple leather apron tied at the waist, a small white skullcap (Taqiyah) and simple leather sandals.",
				"Master artisan: a knee-length cream cotton tunic with rolled-up sleeves, a leather tool belt with brass fittings, a loosely wrapped patterned headscarf and comfortable work shoes.",
			},
			FemaleClothing: []string{
				"Traditional craftswoman: a flowing cotton dress in terracotta or mustard with a colorful embroidered vest, a light patterned headscarf and comfortable slippers.",
				"Artisan helper: a practical long tunic over loose pants in natural linen colors, a simple headscarf tied back for work, beaded accessories and flat shoes.",
			},
		}},
		Frames: []string{ramadanFrame},
	},
	"ramadan_drummer": {
		Name:         "The Ramadan Drummer",
		Description:  "The dawn drummer who wakes the neighborhood for Suhoor",
		PreviewImage: "Ramadan/Drummer-Preview.png",
		Scenes: []SceneVariant{{
			Description: "A magical pre-dawn scene in a traditional Egyptian neighborhood. The subject stands in a narrow alley with old buildings, holding a traditional drum (Tabla). Soft lantern light illuminates the scene. The atmosphere is mystical and peaceful, capturing the essence of Ramadan nights.",
			MaleClothing: []string{
				"Traditional Mesaharati: a long striped Galabeya in blue and white or brown and cream, a wide fabric belt, an embroidered vest, a white turban or Taqiyah, a large Tabla drum and traditional leather shoes.",
				"Night caller: a flowing dark Galabeya with decorative trim, a colorful sash, a patterned headscarf, a traditional lantern and drum stick in hand and comfortable walking shoes.",
			},
			FemaleClothing: []string{
				"Traditional supporter: a long flowing dress in deep purple or emerald with gold embroidery, a headscarf decorated with coins or beads, traditional jewelry and embroidered slippers.",
				"Community helper: a comfortable long tunic over matching pants, a decorative shawl, a simple elegant headscarf and flat shoes.",
			},
		}},
		Frames: []string{ramadanFrame},
	},
	"kunafa_maker": {
		Name:         "Kunafa Dessert Maker",
		Description:  "The master dessert chef of traditional Ramadan sweets",
		PreviewImage: "Ramadan/Kunafa-Preview.png",
		Scenes: []SceneVariant{{
			Description: "A bustling traditional Egyptian sweet shop (Halawany). The subject stands behind a display of golden Kunafa, Qatayef, and other Ramadan desserts. Copper trays gleam, and the atmosphere is warm and inviting. Decorative tiles and traditional architecture visible in the background.",
			MaleClothing: []string{
				"Master Halawany: a clean white chef's coat or apron over a light-colored Galabeya, a white chef's hat or simple white cap and clean white shoes.",
				"Traditional sweet maker: a light cotton tunic with a decorative patterned apron, a small white cap and comfortable work shoes.",
			},
			FemaleClothing: []string{
				"Sweet shop owner: an elegant long dress in rose or cream with an embroidered apron, a stylish coordinating headscarf, traditional jewelry and comfortable elegant shoes.",
				"Dessert artisan: a practical pastel tunic and pants set with a colorful apron, a simple headscarf tied back and flat comfortable shoes.",
			},
		}},
		Frames: []string{ramadanFrame},
	},
	"egyptian_lady": {
		Name:         "The Egyptian Lady",
		Description:  "The elegant Egyptian hostess in festive attire",
		PreviewImage: "Ramadan/Lady-Preview.png",
		Scenes: []SceneVariant{{
			Description: "An elegant traditional Egyptian home interior during Ramadan. The subject sits or stands in a beautifully decorated room with traditional furniture, colorful cushions, and Ramadan decorations. Ornate mashrabiya screens filter soft light. The atmosphere is refined and festive.",
			MaleClothing: []string{
				"Elegant gentleman: a refined long Galabeya in navy or burgundy with subtle embroidery, a matching vest or jacket, a Taqiyah or turban and polished leather shoes.",
				"Distinguished host: a formal cotton Kaftan with decorative buttons and trim, a silk scarf draped over the shoulders and traditional formal shoes.",
			},
			FemaleClothing: []string{
				"Elegant Hanem: a luxurious velvet or silk Kaftan with intricate embroidery and beading, a fashionably styled coordinating headscarf, statement gold jewelry and elegant heeled slippers.",
				"Refined lady: a flowing long tunic over wide pants in jewel tones with gold thread embroidery, an elegantly draped shawl, traditional accessories and embellished flats.",
			},
		}},
		Frames: []string{ramadanFrame},
	},
	"cannon_officer": {
		Name:         "The Iftar Cannon Officer",
		Description:  "The officer who fires the Ramadan cannon at sunset",
		PreviewImage: "Ramadan/Cannon-Preview.png",
		Scenes: []SceneVariant{{
			Description: "The Cairo Citadel at sunset during Ramadan. The subject stands near a historic ceremonial cannon with the Cairo skyline in the background. The sky is painted in warm sunset colors (orange, pink, purple). The atmosphere is majestic and ceremonial, capturing the moment before Iftar.",
			MaleClothing: []string{
				"Ceremonial officer: a military-inspired uniform with Egyptian motifs, a fitted jacket with gold braiding and buttons over matching pants, a fez or military cap, a ceremonial sash and polished boots.",
				"Cannon keeper: a formal vest over a crisp white shirt and dark pants with Egyptian decorative elements, a simple cap or turban and leather boots.",
			},
			FemaleClothing: []string{
				"Ceremonial attendant: an elegant military-style long coat in navy or burgundy with gold trim over a flowing dress, a formally styled headscarf and polished boots.",
				"Traditional observer: a refined long dress with an embroidered jacket, an elegant headscarf, traditional jewelry and elegant flats.",
			},
		}},
		Frames: []string{ramadanFrame},
	},
	"desert_wanderer": {
		Name:         "The Desert Wanderer",
		Description:  "The traveler spending Ramadan in the Egyptian desert",
		PreviewImage: "Ramadan/Desert-Preview.png",
		Scenes: []SceneVariant{{
			Description: "A serene Egyptian desert landscape at dusk during Ramadan. The subject stands near a traditional Bedouin tent with colorful rugs and cushions. Sand dunes and palm trees in the background. The sky transitions from day to night with the first stars appearing. A peaceful, spiritual atmosphere.",
			MaleClothing: []string{
				"Bedouin traveler: a flowing Thobe in white, cream or light brown, a patterned Keffiyeh secured with an Agal, a leather belt with traditional pouches and sturdy leather sandals.",
				"Desert guide: a long tunic with a decorative vest and loose pants, a traditionally wrapped turban, a leather shoulder bag and desert boots.",
			},
			FemaleClothing: []string{
				"Bedouin woman: a flowing dress in deep blue, burgundy or black with colorful embroidery, a headscarf decorated with coins or beading, traditional silver jewelry and embroidered slippers.",
				"Desert traveler: a long tunic over loose earth-toned pants, a colorful shawl, a Bedouin-style wrapped headscarf, leather accessories and comfortable sandals.",
			},
		}},
		Frames: []string{ramadanFrame},
	},
	"snap_a_memory": {
		Name:         "Snap a Memory",
		Description:  "A framed photo of the moment, no restyling",
		PreviewImage: "Ramadan/Snap-Preview.png",
		Passthrough:  true,
		Frames:       []string{ramadanFrame},
	},
}
