// Package catalog holds the static phone catalog and the keyword classifiers built on it.
package catalog

import "strings"

type Brand string

const (
	BrandSamsung Brand = "samsung"
	BrandApple   Brand = "apple"
	BrandXiaomi  Brand = "xiaomi"
	BrandHuawei  Brand = "huawei"
	BrandHonor   Brand = "honor"
)

type brandEntry struct {
	brand    Brand
	keywords []string
	models   []string
}

// brands is checked top to bottom; the first brand with a matching keyword wins.
var brands = []brandEntry{
	{BrandSamsung, []string{"самсунг", "samsung", "галакси", "galaxy"}, []string{"s", "a", "m", "fold", "flip", "note", "ultra"}},
	{BrandApple, []string{"айфон", "iphone", "apple", "эппл"}, []string{"14", "15", "13", "12", "11", "pro", "max", "plus"}},
	{BrandXiaomi, []string{"сяоми", "xiaomi", "ксяоми", "ксиаоми"}, []string{"redmi", "poco", "note", "pro"}},
	{BrandHuawei, []string{"хуавей", "huawei", "хуавэй"}, []string{"p", "mate", "nova"}},
	{BrandHonor, []string{"honor", "хонор"}, []string{"magic", "x", "v"}},
}

var (
	memorySpecs = []string{"гб", "гигов", "гигабайт", "памяти", "gb"}
	colorSpecs  = []string{"черный", "белый", "розовый", "голубой", "серый", "фиолетовый", "золотой"}
	commonSpecs = []string{"память", "цвет", "характеристики", "объем"}

	specKeywords = flatten(memorySpecs, colorSpecs, commonSpecs)
)

func flatten(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// ClassifyProduct reports the first catalog brand mentioned in text.
func ClassifyProduct(text string) (Brand, bool) {
	lower := strings.ToLower(text)
	for _, e := range brands {
		if containsAny(lower, e.keywords) {
			return e.brand, true
		}
	}
	return "", false
}

// IsSpecificationText reports whether text mentions memory, colour or a generic attribute.
func IsSpecificationText(text string) bool {
	return containsAny(strings.ToLower(text), specKeywords)
}

// ModelKeywords returns the model line hints for a brand, nil for unknown brands.
func ModelKeywords(b Brand) []string {
	for _, e := range brands {
		if e.brand == b {
			out := make([]string, len(e.models))
			copy(out, e.models)
			return out
		}
	}
	return nil
}

// Brands lists the catalog brands in match order.
func Brands() []Brand {
	out := make([]Brand, 0, len(brands))
	for _, e := range brands {
		out = append(out, e.brand)
	}
	return out
}

// BrandNames renders the catalog brands for user-facing text, e.g. "Samsung, Apple".
func BrandNames() string {
	names := make([]string, 0, len(brands))
	for _, e := range brands {
		s := string(e.brand)
		names = append(names, strings.ToUpper(s[:1])+s[1:])
	}
	return strings.Join(names, ", ")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
