package model

// StationInfo 电台的静态信息
type StationInfo struct {
	Name        string
	StreamURL   string
	Description string
	Frequency   string
	Slogan      string
	Location    string
	Promoter    string
	PromoterBio string // 关于页的介绍
	Motto       string // 页脚引语
	Publisher   string
	Tagline     string
	Website     string
	Facebook    string
}

// Station 唯一的电台
var Station = StationInfo{
	Name:        "Bourgade FM",
	StreamURL:   "https://radioburkinafm.ice.infomaniak.ch/radioburkinafm-128.mp3",
	Description: "La radio des bourgs, faubourgs et bourgades. Une station patriote et professionnelle au cœur du Burkina Faso.",
	Frequency:   "94.3 MHz",
	Slogan:      "C'est l'auditoire qui décide !",
	Location:    "Ouahigouya, Cité de Naaba Kango",
	Promoter:    "El Hadj Hamadé Nabalma (Ladji Hamed)",
	PromoterBio: "Journaliste émérite et patriote, Ladji Hamed Nabalma cumule 22 ans d'expérience dans les médias. Chevalier de l'Ordre de l'Etalon, il porte avec ferveur les valeurs de rigueur et d'impartialité à travers Bourgade FM.",
	Motto:       "La radio des bourgs, faubourgs et bourgades",
	Publisher:   "CURIEUX MÉDIAS SA",
	Tagline:     "Fierté à Ouahigouya",
	Website:     "https://bourgadefm.com/",
	Facebook:    "https://www.facebook.com/people/RADIO-Bourgade-FM/61583368133672/",
}

// 国旗配色 (hex)
const (
	ColorGreen  = "#009E49"
	ColorYellow = "#FCD116"
	ColorRed    = "#EF2B2D"
	ColorDark   = "#111111"
)

// FactsContext 生成电台介绍时使用的背景资料
const FactsContext = `
Bourgade FM émet sur 94.3 à Ouahigouya (Burkina Faso).
Logo : Un baobab symbolisant la protection, la nourriture et la guérison.
Slogan : "C'est l'auditoire qui décide !".
Promoteur : El Hadj Hamadé Nabalma (alias Ladji Hamed), journaliste avec 22 ans d'expérience, décoré Chevalier de l'Ordre de l'Etalon.
Particularités : Radio généraliste, rigueur professionnelle, impartialité totale, promotion de la culture locale (Yadga, Liptako).
Groupe : Curieux Médias SA.
`
