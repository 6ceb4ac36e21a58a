package lookup

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type LookupServiceAPI interface {
	GetAllCountries() ([]Country, error)
	GetCountryByCode(code string) (*Country, error)
}

type LookupService struct {
	DB *gorm.DB
}

func NewLookupService(db *gorm.DB) *LookupService {
	return &LookupService{DB: db}
}

func (ls *LookupService) GetAllCountries() ([]Country, error) {
	var countries []Country
	result := ls.DB.Order("name ASC").Find(&countries)
	if result.Error != nil {
		return nil, result.Error
	}
	return countries, nil
}

func (ls *LookupService) GetCountryByCode(code string) (*Country, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return nil, errors.New("country code must be two letters")
	}

	var country Country
	result := ls.DB.Where("code = ?", code).First(&country)
	if result.Error != nil {
		return nil, result.Error
	}
	return &country, nil
}

// SeedCountries inserts any catalog entries that are missing, so running it
// at startup is idempotent.
func (ls *LookupService) SeedCountries() error {
	for code, name := range countryCatalog {
		var count int64
		if err := ls.DB.Model(&Country{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := ls.DB.Create(&Country{Code: code, Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}

// countryCatalog is intentionally a subset; extending it is a data change,
// not a code change.
var countryCatalog = map[string]string{
	"AR": "Argentina",
	"AT": "Austria",
	"AU": "Australia",
	"BE": "Belgium",
	"BR": "Brazil",
	"CA": "Canada",
	"CH": "Switzerland",
	"CL": "Chile",
	"CN": "China",
	"CZ": "Czechia",
	"DE": "Germany",
	"DK": "Denmark",
	"EE": "Estonia",
	"ES": "Spain",
	"FI": "Finland",
	"FR": "France",
	"GB": "United Kingdom",
	"GR": "Greece",
	"HR": "Croatia",
	"HU": "Hungary",
	"IE": "Ireland",
	"IL": "Israel",
	"IN": "India",
	"IT": "Italy",
	"JP": "Japan",
	"KR": "South Korea",
	"MX": "Mexico",
	"NL": "Netherlands",
	"NO": "Norway",
	"NZ": "New Zealand",
	"PL": "Poland",
	"PT": "Portugal",
	"RO": "Romania",
	"RS": "Serbia",
	"SE": "Sweden",
	"SI": "Slovenia",
	"SK": "Slovakia",
	"TR": "Turkey",
	"UA": "Ukraine",
	"US": "United States",
	"ZA": "South Africa",
}
