package parser

import "github.com/magicmaxmagic/qualification-generator-sub000/internal/model"

// DefaultSheetAliases 各逻辑角色的 sheet 名候选，按优先级排列
var DefaultSheetAliases = map[model.SheetRole][]string{
	model.RoleCompanies: {"Entreprises", "Entreprise"},
	model.RoleSolutions: {"Solutions", "Solution"},
	model.RoleAnalysis:  {"Analyse comparative", "Comparatif"},
	model.RoleAlignment: {"Evaluation de la finalité", "Alignement avec le besoin"},
}

// Column names shared by the loader, the evaluation model and the alignment projector.
const (
	ColCompany         = "Entreprises"
	ColCompanySingular = "Entreprise"
	ColDescription     = "Description"
	ColHeadquarters    = "Localisation (Siège social)"
	ColFoundedYear     = "Année de fondation"
	ColEmployees       = "Nombre d'employés"
	ColLogo            = "Logo"
	ColURL             = "URL"
	ColLogoURL         = "URL (logo)"
	ColVideoURL        = "URL (vidéo)"
	ColWebsite         = "Website"
	ColWebsiteFR       = "Site web"
	ColRequirementType = "Exigence de base"
	ColRequirement     = "Exigences"
	ColJustification   = "Justification"
)
