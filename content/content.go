// Package content holds the fixed French content lists the daily picks draw
// from. The lists are append-only: the deterministic selection hashes a seed
// modulo the list length, so reordering or removing entries would change
// already-unlocked days.
package content

// LoveNotes are the candidate daily love notes.
var LoveNotes = []string{
	"Je fais semblant d’être sage… mais je pense à toi tout le temps 😇",
	"Mon programme du jour : te manquer. Encore.",
	"J’ai mis ton prénom dans ma to-do list ✅",
	"Je suis en manque… de toi. Et de tes câlins.",
	"Mon cœur a demandé un remboursement de distance.",
	"Bientôt je reviens te coller. Officiellement.",
	"Je te préviens : je vais te faire perdre ton espace vital 💞",
	"À ce stade, tu es littéralement mon obsession préférée.",
	"Je t’attends… mais je boude un peu 😤💖",
	"Si tu veux savoir où je suis : dans tes pensées 😌",
	"Prépare-toi… je vais te dévorer de bisous 💋",
	"J’ai hâte de te revoir… et de ne plus te laisser respirer (un peu) 😇",
	"Mon corps te réclame. Voilà c’est dit 😌",
	"Je pense à toi… et c’est rarement innocent.",
	"Je vais te sauter dessus. Avec amour. Beaucoup d’amour.",
	"Je te préviens : mon câlin va durer minimum 3 heures.",
	"Quand je te revois : je t’embrasse, et après on discute (peut-être) 😈",
	"Je veux juste être dans tes bras… et y rester.",
	"Bientôt je reprends mes droits : bisous illimités ✅",
	"Je t’aime. Et je te veux. Simple.",
	"J’ai hâte de te retrouver… j’ai des intentions très claires 😇",
	"Je suis prête à te coller comme une appli inutile : impossible à supprimer 💅",
	"Je t’envoie un bisou… mais IRL ça sera une attaque.",
	"J’ai faim. De toi. Oui bon.",
	"Tu me manques au point d’être un besoin vital 😭💋",
	"Quand je te revois je fais la fille tranquille… 2 minutes.",
	"Je compte les jours… et je prépare mon plan de bisous 😈",
	"Spoiler : tu vas pas t’en sortir indemne 😘",
	"Ça devient urgent là. Urgent câlin. Urgent toi.",
}

// Challenges are the candidate daily mini challenges.
var Challenges = []string{
	"Envoie-lui un message : “J’ai une annonce importante : tu me manques.”",
	"Fais une ‘review’ de ton copain : ⭐⭐⭐⭐⭐ + une phrase.",
	"Envoie un emoji qui résume ton humeur du jour + “à cause de toi”.",
	"Décris-le en 3 mots… puis ajoute “et c’est MON préféré”.",
	"Envoie “Je pense à toi” mais en version dramatique (exagérée 😭🎭).",
	"Envoie une photo de ton outfit du jour (même en pyjama 😌).",
	"Envoie un GIF qui dit EXACTEMENT ce que tu ressens.",
	"Envoie-lui : “Je te préviens… quand je te vois, je te lâche plus 😇”",
	"Envoie un vocal (5 sec) : “Je te veux là, maintenant.”",
	"Écris : “J’ai envie de…” et finis la phrase avec un truc très doux (ou pas 😈).",
	"Dis-lui : “Mon câlin de retrouvailles va durer ___ minutes”.",
	"Envoie : “J’ai pensé à toi… et c’était PAS innocent.”",
	"Envoie un message : “Tu me manques physiquement.” 😮‍💨",
	"Écris une phrase interdite : “Je serai sage…” (mens un peu).",
	"Donne-lui une mission : “Ce soir tu dois penser à moi avant de dormir.”",
	"Défi 10 secondes : chacun envoie un vocal “j’ai hâte de…”",
	"Défi souvenir : raconte un moment drôle de vous deux en 2 phrases.",
	"Défi imagination : votre prochaine soirée idéale en 3 étapes.",
	"Défi teasing : “Quand on se revoit, je te fais…” (bisou/resto/massage 😇).",
	"Défi secret : chacun écrit une chose qu’il/elle veut refaire ensemble.",
	"Défi musique : choisis une chanson qui te donne envie de l’embrasser.",
}

// QuizQuestion is one multiple-choice daily trivia question. Answer indexes
// into Options.
type QuizQuestion struct {
	Id       string
	Question string
	Options  []string
	Answer   int
}

// QuizQuestions are the candidate daily couple-trivia questions.
var QuizQuestions = []QuizQuestion{
	{Id: "q01", Question: "Quel est le premier film qu’on a regardé ensemble ?", Options: []string{"Un Disney", "Un film d’horreur", "Une comédie romantique", "On s’en souvient plus"}, Answer: 2},
	{Id: "q02", Question: "Qui a envoyé le premier message ?", Options: []string{"Léa", "Gauthier", "Les deux en même temps", "Mystère"}, Answer: 0},
	{Id: "q03", Question: "Notre plat préféré à partager ?", Options: []string{"Pizza", "Ramen", "Raclette", "Sushis"}, Answer: 2},
	{Id: "q04", Question: "La chanson qui nous fait penser à nous ?", Options: []string{"La première de la playlist", "Celle du premier soir", "Celle qu’on chante faux", "Toutes"}, Answer: 3},
	{Id: "q05", Question: "Qui s’endort en premier ?", Options: []string{"Léa", "Gauthier", "Égalité", "Personne, on parle trop"}, Answer: 1},
	{Id: "q06", Question: "Notre prochaine destination de rêve ?", Options: []string{"Japon", "Italie", "Islande", "N’importe où ensemble"}, Answer: 3},
	{Id: "q07", Question: "Le surnom le plus utilisé ?", Options: []string{"Mon cœur", "Bébé", "Chaton", "Un truc secret"}, Answer: 3},
	{Id: "q08", Question: "Qui gagne aux jeux de société ?", Options: []string{"Léa", "Gauthier", "Celui qui triche", "On finit par s’embrasser"}, Answer: 2},
	{Id: "q09", Question: "Notre saison préférée à deux ?", Options: []string{"Printemps", "Été", "Automne", "Hiver"}, Answer: 1},
	{Id: "q10", Question: "Le premier cadeau offert ?", Options: []string{"Des fleurs", "Une lettre", "Un bijou", "Un câlin (ça compte)"}, Answer: 1},
	{Id: "q11", Question: "Qui cuisine le mieux ?", Options: []string{"Léa", "Gauthier", "Les deux", "Le livreur"}, Answer: 0},
	{Id: "q12", Question: "Notre emoji officiel ?", Options: []string{"💞", "😈", "🥐", "🐢"}, Answer: 0},
}

// CoupleQuestions are the Valentine's-day couple quiz questions; every one of
// them must receive a non-empty answer before a submission is accepted.
var CoupleQuestions = []string{
	"Raconte notre plus beau souvenir en une phrase.",
	"Qu’est-ce que tu préfères chez l’autre ?",
	"Notre prochaine aventure idéale ?",
	"Une chose que tu n’as jamais osé dire ?",
	"Décris-nous dans 10 ans.",
}

// DefaultMovies seeds the shared watchlist of a fresh room.
var DefaultMovies = []string{
	"Le Fabuleux Destin d’Amélie Poulain",
	"La La Land",
	"Your Name",
	"Intouchables",
	"About Time",
}

// ParticipantLabel maps a participant id to its display name in notifications.
func ParticipantLabel(who string) string {
	switch who {
	case "lea":
		return "Léa"
	case "gauthier":
		return "Gauthier"
	}
	return "Quelqu'un"
}
