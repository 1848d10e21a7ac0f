package food

import "strings"

type foodInfo struct {
	// CustomQuestion and CustomAnswer are the question the bot asks about
	// the food and its own answer to it.
	CustomQuestion string
	CustomAnswer   string
	Comment        string
	Ingredient     string
	Texture        string
}

var foods = map[string]foodInfo{
	"hamburger": {
		CustomQuestion: "I just love biting into a juicy hamburger, especially with melted cheese on top! What's your favorite topping to put on a hamburger?",
		CustomAnswer:   "adding a fried egg, it makes it so rich and delicious",
	},
	"sandwich": {
		CustomQuestion: "It's just so cool to me that you can take anything you want and put it in your sandwich. What's your favorite sandwich filling?",
		CustomAnswer:   "a simple bacon, lettuce, and tomato sandwich, it's my favorite thing for lunch",
	},
	"fried rice": {
		CustomQuestion: "Fried rice is one of my favorites! I just love all the different things you can put in it. What's your favorite thing to put in fried rice?",
		CustomAnswer:   "mine with cabbage and teriyaki chicken, it really hits the spot for me",
	},
	"pizza": {
		CustomQuestion: "I love eating pizza, especially when it's late at night! What's your favorite pizza topping?",
		CustomAnswer:   "a nice mushroom pizza",
	},
	"salad": {
		CustomQuestion: "A crunchy salad really hits the spot for me sometimes! I love putting croutons and ranch in my salad. What do you like in your salads?",
		CustomAnswer:   "nice cheesy croutons and a douse of olive oil",
	},
	"pasta": {
		CustomQuestion: "I love how versatile pasta is! There are so many different kinds of sauces and toppings to choose from, I could eat pasta every day of the week. What kind of pasta do you like?",
		CustomAnswer:   "spaghetti carbonara, the bacon and cheese are so savory together",
	},
	"pastry": {
		CustomQuestion: "Pastries are my favorite way to start the morning. I love how crunchy and buttery they are! What kind of pastry is your favorite?",
		CustomAnswer:   "apple danish, so simple yet delicious",
	},
	"doughnut": {
		CustomQuestion: "I love a nice sugary donut! I probably shouldn't be eating them for breakfast, but I do anyway. What's your favorite kind of doughnut?",
		CustomAnswer:   "just a plain maple glazed donut",
	},
	"bagel": {
		CustomQuestion: "A nice chewy bagel is my favorite way to start the day, especially with some cream cheese or jelly on top! What's your favorite kind of bagel?",
		CustomAnswer:   "the everything bagel, it's everything",
	},
	"roast beef": {
		CustomQuestion: "Roast beef is one of my favorite dishes! The way it tastes and smells when it's cooking is amazing! What's your favorite thing to eat roast beef with?",
		CustomAnswer:   "a side of mashed potatoes",
	},
	"ice cream": {
		CustomQuestion: "Honestly, ice cream is my favorite dessert. It's so yummy, I can't get enough of it whether it's in a cone, cup, or ice cream bar. What's your favorite flavor?",
		CustomAnswer:   "butterscotch pecan",
	},
	"coffee": {
		CustomQuestion: "I love drinking coffee! A nice cup of coffee is my favorite way to start the day. What's your favorite coffee drink?",
		CustomAnswer:   "a mocha, the chocolate and coffee go so well together",
	},
	"cake": {
		CustomQuestion: "I really love cake! I guess you could say I have a bit of a sweet tooth. What's your favorite type of cake?",
		CustomAnswer:   "cheesecake topped with blueberry coulis",
	},
	"popcorn": {
		CustomQuestion: "I love popcorn because it's so crunchy and has such a cool texture! What's your favorite popcorn topping?",
		CustomAnswer:   "kettle corn with cheese powder",
	},
	"ramen": {
		CustomQuestion: "I really enjoy eating ramen! It's simple to make and always tastes fantastic. What's your favorite flavor of ramen?",
		CustomAnswer:   "chicken flavored ramen",
	},
	"cereal": {
		CustomQuestion: "I love having cereal! It's one of my favorite breakfast foods. What's your favorite cereal?",
		CustomAnswer:   "muesli with fresh fruit and honey",
	},
	"bread": {
		CustomQuestion: "I love bread! There are so many things you can do with it. What's your favorite type of bread?",
		CustomAnswer:   "bread with anko, which is red bean paste",
	},
	"potato chip": {
		CustomQuestion: "Potato chips are great! They're so delicious and crunchy. What's your favorite potato chip flavor?",
		CustomAnswer:   "sea salt and pepper",
	},
	"burrito": {
		CustomQuestion: "Burritos are great because you can put all sorts of tasty things in them! What are your favorite toppings?",
		CustomAnswer:   "adding carnitas with large amounts of salsa and cheese",
	},
	"cheese": {
		Comment: "I really really love cheese, it's so yummy and goes with everything! Sometimes I feel like I could just eat some delicious cheese on fresh-baked bread for a meal.",
	},
	"soup": {
		Comment: "Honestly, nothing cheers me up like hot soup on a cold winter day.",
	},
	"sushi":     {Ingredient: "fresh salmon"},
	"taco":      {Ingredient: "cilantro"},
	"lasagna":   {Ingredient: "ricotta"},
	"curry":     {Ingredient: "coconut milk"},
	"chocolate": {Texture: "rich and smooth"},
	"steak":     {Texture: "tender"},
	"pancake":   {Texture: "fluffy"},
	"brownie":   {Texture: "fudgy"},
}

var concludingStatements = []string{
	"Anyway, I'm feeling hungry now! Thanks for recommending %s!",
	"Anyway, thanks for talking to me about %s. I'll have to get some soon!",
}

// lookup finds a food by canonical or talkable name, tolerating plurals.
func lookup(name string) (foodInfo, string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, cand := range []string{n, strings.TrimSuffix(n, "s"), strings.TrimSuffix(n, "es")} {
		if info, ok := foods[cand]; ok {
			return info, cand, true
		}
	}
	return foodInfo{}, "", false
}

func isKnownFood(name string) bool {
	_, _, ok := lookup(name)
	return ok
}

func inflect(plural bool, singular, pl string) string {
	if plural {
		return pl
	}
	return singular
}

// comment is the bot's opinion on a food without a custom question.
func (f foodInfo) comment(plural bool) string {
	switch {
	case f.Comment != "":
		return f.Comment
	case f.Ingredient != "":
		return "Personally, I especially like the " + f.Ingredient + " in " + inflect(plural, "it", "them") +
			", I think it gives " + inflect(plural, "it", "them") + " a really nice flavor."
	case f.Texture != "":
		return "Personally, I love " + inflect(plural, "its", "their") + " texture, especially how " +
			inflect(plural, "it's", "they're") + " so " + f.Texture + "."
	}
	return ""
}
