// Package testutil provides product catalogs and factories for tests.
package testutil

import (
	"context"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
)

type catalogRow struct {
	name     string
	category string
	price    float64
	unit     models.Unit
	size     float64
	roles    []string
	tags     []string
}

var catalogRows = []catalogRow{
	{"Курица бедро охлажденное", "Мясо птицы", 320, models.UnitKilogram, 1.0, []string{"main_course"}, []string{"meat", "halal"}},
	{"Филе куриное", "Мясо птицы", 450, models.UnitKilogram, 1.0, []string{"main_course"}, []string{"meat"}},
	{"Смесь овощная мексиканская", "Замороженные овощи", 180, models.UnitKilogram, 0.4, []string{"side_dish"}, []string{"vegan", "vegetarian"}},
	{"Рис длиннозерный", "Крупы", 120, models.UnitKilogram, 0.9, []string{"side_dish"}, []string{"vegan"}},
	{"Сок томатный", "Соки", 140, models.UnitLiter, 1.0, []string{"beverage"}, nil},
	{"Филе трески", "Рыба", 520, models.UnitKilogram, 0.5, []string{"main_course"}, []string{"fish"}},
	{"Картофель молодой", "Овощи", 90, models.UnitKilogram, 1.0, []string{"side_dish"}, []string{"vegan"}},
	{"Лимоны", "Фрукты", 40, models.UnitPiece, 1, []string{"sauce"}, []string{"vegan"}},
	{"Салат листовой", "Зелень", 80, models.UnitKilogram, 0.1, []string{"salad"}, []string{"vegan"}},
	{"Чай черный листовой", "Чай", 150, models.UnitKilogram, 0.1, []string{"beverage"}, nil},
	{"Говядина лопатка", "Мясо", 650, models.UnitKilogram, 1.0, []string{"main_course"}, []string{"meat"}},
	{"Гречка ядрица", "Крупы", 95, models.UnitKilogram, 0.9, []string{"side_dish"}, []string{"vegan"}},
	{"Морковь мытая", "Овощи", 60, models.UnitKilogram, 1.0, []string{"side_dish"}, []string{"vegan"}},
	{"Соус томатный", "Соусы", 85, models.UnitKilogram, 0.3, []string{"sauce"}, nil},
	{"Сок яблочный", "Соки", 130, models.UnitLiter, 1.0, []string{"beverage"}, nil},
	{"Фарш говяжий", "Мясо", 420, models.UnitKilogram, 0.5, []string{"main_course"}, []string{"meat"}},
	{"Спагетти", "Макаронные изделия", 110, models.UnitKilogram, 0.45, []string{"side_dish"}, []string{"gluten"}},
	{"Томаты в собственном соку", "Консервы", 150, models.UnitKilogram, 0.4, []string{"sauce"}, []string{"vegan"}},
	{"Сыр пармезан", "Сыры", 390, models.UnitKilogram, 0.2, []string{"side_dish"}, []string{"dairy"}},
	{"Сок виноградный", "Соки", 160, models.UnitLiter, 1.0, []string{"beverage"}, nil},
	{"Нут", "Бобовые", 130, models.UnitKilogram, 0.5, []string{"main_course"}, []string{"vegan"}},
	{"Кабачки", "Овощи", 120, models.UnitKilogram, 1.0, []string{"side_dish"}, []string{"vegan"}},
	{"Чай зеленый", "Чай", 170, models.UnitKilogram, 0.1, []string{"beverage"}, nil},
	{"Яйца куриные С1", "Яйца", 110, models.UnitPiece, 10, []string{"main_course"}, []string{"vegetarian"}},
	{"Перец болгарский", "Овощи", 250, models.UnitKilogram, 1.0, []string{"side_dish"}, []string{"vegan"}},
	{"Хлеб цельнозерновой", "Хлеб", 70, models.UnitKilogram, 0.4, []string{"bakery"}, []string{"gluten"}},
	{"Кефир 2.5%", "Молочные продукты", 95, models.UnitLiter, 0.9, []string{"beverage"}, []string{"dairy"}},
	{"Курица тушка", "Мясо птицы", 280, models.UnitKilogram, 1.5, []string{"main_course"}, []string{"meat"}},
	{"Куриные голени", "Мясо птицы", 230, models.UnitKilogram, 1.0, []string{"main_course"}, []string{"meat"}},
	{"Молоко 2.5%", "Молочные продукты", 90, models.UnitLiter, 1.0, []string{"beverage"}, []string{"dairy"}},
	{"Печенье овсяное", "Кондитерские изделия", 75, models.UnitKilogram, 0.3, []string{"bakery", "dessert"}, []string{"gluten"}},
	{"Йогурт питьевой клубничный", "Молочные продукты", 65, models.UnitKilogram, 0.3, []string{"dessert"}, []string{"dairy"}},
	{"Яблоки гала", "Фрукты", 150, models.UnitKilogram, 1.0, []string{"dessert"}, []string{"vegan"}},
}

// Catalog returns a realistic grocery catalog with vectors produced by e.
func Catalog(e embedding.Embedder) []models.Product {
	products := make([]models.Product, len(catalogRows))
	texts := make([]string, len(catalogRows))
	for i, row := range catalogRows {
		products[i] = models.Product{
			ID:           i + 1,
			Name:         row.name,
			Category:     row.category,
			PricePerUnit: row.price,
			Unit:         row.unit,
			PackageSize:  row.size,
			MealRoles:    row.roles,
			Tags:         row.tags,
		}
		texts[i] = products[i].EmbeddingText()
	}

	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		panic(err)
	}
	for i := range products {
		products[i].Vector = vectors[i]
	}
	return products
}

// ProductFactory creates random products from a seeded faker
type ProductFactory struct {
	faker *gofakeit.Faker
	dim   int
	next  int
}

// NewProductFactory creates a product factory producing vectors of size dim.
func NewProductFactory(seed int64, dim int) *ProductFactory {
	return &ProductFactory{
		faker: gofakeit.New(seed),
		dim:   dim,
		next:  1,
	}
}

var factoryRoles = []string{"main_course", "side_dish", "beverage", "salad", "sauce", "bakery", "dessert"}
var factoryUnits = []models.Unit{models.UnitKilogram, models.UnitLiter, models.UnitPiece}

// Product returns a random product with a valid vector.
func (f *ProductFactory) Product() models.Product {
	id := f.next
	f.next++

	vector := make([]float32, f.dim)
	for i := range vector {
		vector[i] = float32(f.faker.Float64Range(-1, 1))
	}
	vector[0] += 1.5

	return models.Product{
		ID:           id,
		Name:         f.faker.Noun() + " " + f.faker.Adjective(),
		Category:     f.faker.Word(),
		Brand:        f.faker.Company(),
		PricePerUnit: float64(f.faker.IntRange(10, 2000)),
		Unit:         factoryUnits[f.faker.IntRange(0, len(factoryUnits)-1)],
		PackageSize:  f.faker.Float64Range(0.1, 2),
		MealRoles:    []string{factoryRoles[f.faker.IntRange(0, len(factoryRoles)-1)]},
		Vector:       vector,
	}
}

// Pool returns n random products.
func (f *ProductFactory) Pool(n int) []models.Product {
	pool := make([]models.Product, n)
	for i := range pool {
		pool[i] = f.Product()
	}
	return pool
}

// Float returns a random float in [min, max].
func (f *ProductFactory) Float(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Int returns a random int in [min, max].
func (f *ProductFactory) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}
