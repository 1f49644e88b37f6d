package deck

import "fmt"

// Symbol is one catalog entry. Image points at the public sprite the
// clients render for the card face.
type Symbol struct {
	Name  string
	Image string
}

const spriteBase = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon"

func sprite(n int) string {
	return fmt.Sprintf("%s/%d.png", spriteBase, n)
}

// catalog is the fixed pool of card faces. Order is irrelevant; decks
// draw from it uniformly at random.
var catalog = []Symbol{
	{"Bulbasaur", sprite(1)},
	{"Charmander", sprite(4)},
	{"Charizard", sprite(6)},
	{"Squirtle", sprite(7)},
	{"Blastoise", sprite(9)},
	{"Pikachu", sprite(25)},
	{"Raichu", sprite(26)},
	{"Jigglypuff", sprite(39)},
	{"Meowth", sprite(52)},
	{"Psyduck", sprite(54)},
	{"Machamp", sprite(68)},
	{"Gengar", sprite(94)},
	{"Onix", sprite(95)},
	{"Snorlax", sprite(143)},
	{"Dragonite", sprite(149)},
	{"Mewtwo", sprite(150)},
	{"Mew", sprite(151)},
	{"Cyndaquil", sprite(155)},
	{"Typhlosion", sprite(157)},
	{"Totodile", sprite(158)},
	{"Feraligatr", sprite(160)},
	{"Togepi", sprite(175)},
	{"Ampharos", sprite(181)},
	{"Scizor", sprite(212)},
	{"Heracross", sprite(214)},
	{"Tyranitar", sprite(248)},
	{"Lugia", sprite(249)},
	{"Ho-oh", sprite(250)},
	{"Celebi", sprite(251)},
	{"Torchic", sprite(255)},
	{"Blaziken", sprite(257)},
	{"Mudkip", sprite(258)},
	{"Swampert", sprite(260)},
	{"Gardevoir", sprite(282)},
	{"Sableye", sprite(302)},
	{"Aggron", sprite(306)},
	{"Flygon", sprite(330)},
	{"Salamence", sprite(373)},
	{"Metagross", sprite(376)},
	{"Latias", sprite(380)},
	{"Latios", sprite(381)},
	{"Kyogre", sprite(382)},
	{"Groudon", sprite(383)},
	{"Rayquaza", sprite(384)},
	{"Jirachi", sprite(385)},
	{"Deoxys", sprite(386)},
	{"Turtwig", sprite(387)},
	{"Infernape", sprite(392)},
	{"Piplup", sprite(393)},
	{"Empoleon", sprite(395)},
	{"Garchomp", sprite(445)},
	{"Lucario", sprite(448)},
	{"Dialga", sprite(483)},
	{"Palkia", sprite(484)},
	{"Giratina", sprite(487)},
	{"Darkrai", sprite(491)},
	{"Arceus", sprite(493)},
	{"Victini", sprite(494)},
	{"Zoroark", sprite(571)},
	{"Hydreigon", sprite(635)},
	{"Reshiram", sprite(643)},
	{"Zekrom", sprite(644)},
	{"Kyurem", sprite(646)},
	{"Greninja", sprite(658)},
	{"Sylveon", sprite(700)},
	{"Xerneas", sprite(716)},
	{"Yveltal", sprite(717)},
	{"Zygarde", sprite(718)},
	{"Decidueye", sprite(724)},
	{"Incineroar", sprite(727)},
	{"Primarina", sprite(730)},
	{"Lycanroc", sprite(745)},
	{"Mimikyu", sprite(778)},
	{"Solgaleo", sprite(791)},
	{"Lunala", sprite(792)},
	{"Necrozma", sprite(800)},
	{"Grookey", sprite(810)},
	{"Rillaboom", sprite(812)},
	{"Scorbunny", sprite(813)},
	{"Cinderace", sprite(815)},
	{"Sobble", sprite(816)},
	{"Inteleon", sprite(818)},
	{"Corviknight", sprite(823)},
	{"Dragapult", sprite(887)},
	{"Zacian", sprite(888)},
	{"Zamazenta", sprite(889)},
	{"Eternatus", sprite(890)},
}

// CatalogSize reports how many distinct symbols are available.
func CatalogSize() int {
	return len(catalog)
}
