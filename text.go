package main

var (
	ContactSuccess = `Message enregistré, merci !`

	ContactFailure = `Désolé, une erreur est survenue lors de l'enregistrement de votre message.
	Veuillez réessayer plus tard.`

	PageFailure = `Désolé, la page n'a pas pu être affichée. Veuillez réessayer plus tard.`
)
